// Package chain describes how orchestrators talk to the destination chain.
package chain

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/gravity"
)

var ErrTxNotFound = errors.New("transaction was not included")

type Receipt struct {
	TxHash common.Hash `json:"tx_hash"`
	Height uint64      `json:"height"`
	Code   uint32      `json:"code"`
	Log    string      `json:"log,omitempty"`
}

// Err restores the error the transaction failed with, nil when it succeeded.
func (r *Receipt) Err() error {
	return gravity.ErrorFromCode(r.Code, r.Log)
}

type QueryClient interface {
	LastEventNonceForValidator(ctx context.Context, addr common.Address) (uint64, error)
	Attestations(ctx context.Context, filter gravity.AttestationFilter) ([]*gravity.Attestation, error)
	DenomToERC20(ctx context.Context, denom string) (*gravity.DenomToERC20, error)
	BridgeStatus(ctx context.Context) (*gravity.BridgeStatus, error)
}

type Client interface {
	QueryClient
	ChainID() string
	SubmitTransaction(ctx context.Context, msg *gravity.MsgClaim) (common.Hash, error)
	// WaitForTx returns ErrTxNotFound when the transaction was not included before the timeout.
	WaitForTx(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error)
}
