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

type claimSubmissionsRepo basePostgresRepo

func NewClaimSubmissionsRepo(table string, db *db.DB) entity.ClaimSubmissionsRepo {
	return (*claimSubmissionsRepo)(newBasePostgresRepo(table, db))
}

func (r *claimSubmissionsRepo) Ensure(ctx context.Context, sub *entity.ClaimSubmission) error {
	q, args, err := sq.Insert(r.table).
		Columns("orchestrator", "event_nonce", "claim_hash", "tx_hash", "status", "error", "attempts").
		Values(sub.Orchestrator, sub.EventNonce, sub.ClaimHash, sub.TxHash, sub.Status, sub.Error, sub.Attempts).
		Suffix("ON CONFLICT (orchestrator, event_nonce, claim_hash) DO UPDATE SET updated_at = NOW(), tx_hash = EXCLUDED.tx_hash, status = EXCLUDED.status, error = EXCLUDED.error, attempts = EXCLUDED.attempts").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert claim submission: %w", err)
	}
	return nil
}

func (r *claimSubmissionsRepo) FindLatest(ctx context.Context, orchestrator common.Address) (*entity.ClaimSubmission, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"orchestrator": orchestrator}).
		OrderBy("event_nonce DESC", "updated_at DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	sub := new(entity.ClaimSubmission)
	err = r.db.GetContext(ctx, sub, q, args...)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("can't get latest claim submission: %w", err)
	}
	return sub, nil
}

func (r *claimSubmissionsRepo) FindByNonce(ctx context.Context, orchestrator common.Address, nonce uint64) ([]*entity.ClaimSubmission, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"orchestrator": orchestrator, "event_nonce": nonce}).
		OrderBy("created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	subs := make([]*entity.ClaimSubmission, 0, 1)
	err = r.db.SelectContext(ctx, &subs, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find claim submissions: %w", err)
	}
	return subs, nil
}
