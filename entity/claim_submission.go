package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionRejected SubmissionStatus = "rejected"
	SubmissionFailed   SubmissionStatus = "failed"
)

type ClaimSubmission struct {
	Orchestrator common.Address   `db:"orchestrator"`
	EventNonce   uint64           `db:"event_nonce"`
	ClaimHash    common.Hash      `db:"claim_hash"`
	TxHash       *common.Hash     `db:"tx_hash"`
	Status       SubmissionStatus `db:"status"`
	Error        string           `db:"error"`
	Attempts     uint             `db:"attempts"`
	CreatedAt    *time.Time       `db:"created_at"`
	UpdatedAt    *time.Time       `db:"updated_at"`
}

type ClaimSubmissionsRepo interface {
	Ensure(ctx context.Context, sub *ClaimSubmission) error
	FindLatest(ctx context.Context, orchestrator common.Address) (*ClaimSubmission, error)
	FindByNonce(ctx context.Context, orchestrator common.Address, nonce uint64) ([]*ClaimSubmission, error)
}
