package entity

import (
	"context"
	"time"
)

type BridgeStateSample struct {
	ID                uint       `db:"id"`
	ChainID           string     `db:"chain_id"`
	State             string     `db:"state"`
	LastObservedNonce uint64     `db:"last_observed_nonce"`
	MaxValidatorNonce uint64     `db:"max_validator_nonce"`
	MinValidatorNonce uint64     `db:"min_validator_nonce"`
	Contested         bool       `db:"contested"`
	SampledAt         time.Time  `db:"sampled_at"`
	CreatedAt         *time.Time `db:"created_at"`
}

type BridgeStateSamplesRepo interface {
	Insert(ctx context.Context, sample *BridgeStateSample) error
	FindLatest(ctx context.Context, chainID string, limit uint64) ([]*BridgeStateSample, error)
}
