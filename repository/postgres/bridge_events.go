package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/entity"
)

type bridgeEventsRepo basePostgresRepo

func NewBridgeEventsRepo(table string, db *db.DB) entity.BridgeEventsRepo {
	return (*bridgeEventsRepo)(newBasePostgresRepo(table, db))
}

func (r *bridgeEventsRepo) Ensure(ctx context.Context, events ...*entity.BridgeEvent) error {
	if len(events) == 0 {
		return nil
	}
	q := sq.Insert(r.table).
		Columns("chain_id", "contract", "event_nonce", "kind", "block_number", "log_index", "transaction_hash",
			"token_contract", "sender", "receiver", "amount", "batch_nonce", "valset_nonce",
			"cosmos_denom", "name", "symbol", "decimals")
	for _, e := range events {
		q = q.Values(e.ChainID, e.Contract, e.EventNonce, e.Kind, e.BlockNumber, e.LogIndex, e.TransactionHash,
			e.TokenContract, e.Sender, e.Receiver, e.Amount, e.BatchNonce, e.ValsetNonce,
			e.CosmosDenom, e.Name, e.Symbol, e.Decimals)
	}
	sql, args, err := q.
		Suffix("ON CONFLICT (chain_id, contract, event_nonce) DO UPDATE SET updated_at = NOW()").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("can't insert bridge events: %w", err)
	}
	return nil
}

func (r *bridgeEventsRepo) GetByNonce(ctx context.Context, chainID string, contract common.Address, nonce uint64) (*entity.BridgeEvent, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "contract": contract, "event_nonce": nonce}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	event := new(entity.BridgeEvent)
	err = r.db.GetContext(ctx, event, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("can't get bridge event by nonce: %w", err)
	}
	return event, nil
}

func (r *bridgeEventsRepo) FindFromNonce(ctx context.Context, chainID string, contract common.Address, fromNonce uint64, limit uint64) ([]*entity.BridgeEvent, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID, "contract": contract}).
		Where(sq.GtOrEq{"event_nonce": fromNonce}).
		OrderBy("event_nonce").
		Limit(limit).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	events := make([]*entity.BridgeEvent, 0, limit)
	err = r.db.SelectContext(ctx, &events, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find bridge events: %w", err)
	}
	return events, nil
}
