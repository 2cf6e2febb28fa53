package entity

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type EventKind string

const (
	EventKindDeposit       EventKind = "deposit"
	EventKindBatchExecuted EventKind = "batch_executed"
	EventKindValsetUpdated EventKind = "valset_updated"
	EventKindERC20Deployed EventKind = "erc20_deployed"
)

// BridgeEvent is a decoded bridge contract event. Events are immutable once observed,
// the (chain_id, contract, event_nonce) triple identifies them.
type BridgeEvent struct {
	ChainID         string         `db:"chain_id"`
	Contract        common.Address `db:"contract"`
	EventNonce      uint64         `db:"event_nonce"`
	Kind            EventKind      `db:"kind"`
	BlockNumber     uint           `db:"block_number"`
	LogIndex        uint           `db:"log_index"`
	TransactionHash common.Hash    `db:"transaction_hash"`
	TokenContract   common.Address `db:"token_contract"`
	Sender          common.Address `db:"sender"`
	Receiver        string         `db:"receiver"`
	Amount          *Amount        `db:"amount"`
	BatchNonce      uint64         `db:"batch_nonce"`
	ValsetNonce     uint64         `db:"valset_nonce"`
	CosmosDenom     string         `db:"cosmos_denom"`
	Name            string         `db:"name"`
	Symbol          string         `db:"symbol"`
	Decimals        uint8          `db:"decimals"`
	CreatedAt       *time.Time     `db:"created_at"`
	UpdatedAt       *time.Time     `db:"updated_at"`
}

type BridgeEventsRepo interface {
	Ensure(ctx context.Context, events ...*BridgeEvent) error
	GetByNonce(ctx context.Context, chainID string, contract common.Address, nonce uint64) (*BridgeEvent, error)
	FindFromNonce(ctx context.Context, chainID string, contract common.Address, fromNonce uint64, limit uint64) ([]*BridgeEvent, error)
}
