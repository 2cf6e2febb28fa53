package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/entity"
)

type bridgeStateSamplesRepo basePostgresRepo

func NewBridgeStateSamplesRepo(table string, db *db.DB) entity.BridgeStateSamplesRepo {
	return (*bridgeStateSamplesRepo)(newBasePostgresRepo(table, db))
}

func (r *bridgeStateSamplesRepo) Insert(ctx context.Context, s *entity.BridgeStateSample) error {
	q, args, err := sq.Insert(r.table).
		Columns("chain_id", "state", "last_observed_nonce", "max_validator_nonce", "min_validator_nonce", "contested", "sampled_at").
		Values(s.ChainID, s.State, s.LastObservedNonce, s.MaxValidatorNonce, s.MinValidatorNonce, s.Contested, s.SampledAt).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("can't build query: %w", err)
	}
	_, err = r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("can't insert bridge state sample: %w", err)
	}
	return nil
}

func (r *bridgeStateSamplesRepo) FindLatest(ctx context.Context, chainID string, limit uint64) ([]*entity.BridgeStateSample, error) {
	q, args, err := sq.Select("*").
		From(r.table).
		Where(sq.Eq{"chain_id": chainID}).
		OrderBy("sampled_at DESC", "id DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("can't build query: %w", err)
	}
	samples := make([]*entity.BridgeStateSample, 0, limit)
	err = r.db.SelectContext(ctx, &samples, q, args...)
	if err != nil {
		return nil, fmt.Errorf("can't find bridge state samples: %w", err)
	}
	return samples, nil
}
