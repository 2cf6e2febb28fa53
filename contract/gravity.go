package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bridgekit/gravity-orchestrator/contract/abi"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/ethclient"
)

var ErrUnexpectedEventArgs = errors.New("unexpected event arguments")

// GravityContract reads the Ethereum side of the bridge.
type GravityContract struct {
	*Contract
	chainID string
	// SafeLogs makes every logs request verify the node is synced up to the requested block.
	SafeLogs bool
}

func NewGravityContract(client ethclient.Client, chainID string, addr common.Address) *GravityContract {
	return &GravityContract{
		Contract: NewContract(client, addr, abi.GravityABI),
		chainID:  chainID,
	}
}

func (c *GravityContract) LastEventNonce(ctx context.Context) (uint64, error) {
	out, err := c.Call(ctx, "state_lastEventNonce")
	if err != nil {
		return 0, err
	}
	n, ok := out[0].(*big.Int)
	if !ok || !n.IsUint64() {
		return 0, fmt.Errorf("%w: state_lastEventNonce returned %v", ErrUnexpectedEventArgs, out[0])
	}
	return n.Uint64(), nil
}

// EventsInRange returns the bridge events emitted in blocks [from, to] ordered by event nonce.
func (c *GravityContract) EventsInRange(ctx context.Context, from, to uint) ([]*entity.BridgeEvent, error) {
	q := c.FilterQuery(from, to)
	var logs []types.Log
	var err error
	if c.SafeLogs {
		logs, err = c.client.FilterLogsSafe(ctx, q)
	} else {
		logs, err = c.client.FilterLogs(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("can't fetch logs in range [%d, %d]: %w", from, to, err)
	}
	events := make([]*entity.BridgeEvent, 0, len(logs))
	for i := range logs {
		if logs[i].Removed {
			continue
		}
		e, err := c.DecodeEvent(&logs[i])
		if err != nil {
			return nil, err
		}
		if e != nil {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].EventNonce < events[j].EventNonce
	})
	return events, nil
}

// DecodeEvent turns a contract log into a bridge event. Logs of other events return nil.
func (c *GravityContract) DecodeEvent(log *types.Log) (*entity.BridgeEvent, error) {
	name, values, err := c.ParseLog(log)
	if err != nil || name == "" {
		return nil, err
	}
	a := args(values)
	e := &entity.BridgeEvent{
		ChainID:         c.chainID,
		Contract:        log.Address,
		EventNonce:      a.u64("_eventNonce"),
		BlockNumber:     uint(log.BlockNumber),
		LogIndex:        log.Index,
		TransactionHash: log.TxHash,
	}
	switch name {
	case abi.SendToCosmosEvent:
		e.Kind = entity.EventKindDeposit
		e.TokenContract = a.addr("_tokenContract")
		e.Sender = a.addr("_sender")
		e.Receiver = a.str("_destination")
		e.Amount = entity.NewAmount(a.bigInt("_amount"))
	case abi.TransactionBatchExecutedEvent:
		e.Kind = entity.EventKindBatchExecuted
		e.TokenContract = a.addr("_token")
		e.BatchNonce = a.u64("_batchNonce")
	case abi.ValsetUpdatedEvent:
		e.Kind = entity.EventKindValsetUpdated
		e.ValsetNonce = a.u64("_newValsetNonce")
		e.TokenContract = a.addr("_rewardToken")
		e.Amount = entity.NewAmount(a.bigInt("_rewardAmount"))
	case abi.ERC20DeployedEvent:
		e.Kind = entity.EventKindERC20Deployed
		e.TokenContract = a.addr("_tokenContract")
		e.CosmosDenom = a.str("_cosmosDenom")
		e.Name = a.str("_name")
		e.Symbol = a.str("_symbol")
		e.Decimals = a.u8("_decimals")
	}
	if a.err != nil {
		return nil, fmt.Errorf("can't decode %s at block %d: %w", name, log.BlockNumber, a.err)
	}
	if e.EventNonce == 0 {
		return nil, fmt.Errorf("%w: %s at block %d has zero event nonce", ErrUnexpectedEventArgs, name, log.BlockNumber)
	}
	return e, nil
}

// argReader extracts typed values from decoded event arguments, keeping the first error.
type argReader struct {
	values map[string]interface{}
	err    error
}

func args(values map[string]interface{}) *argReader {
	return &argReader{values: values}
}

func (r *argReader) fail(name string, v interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s has type %T", ErrUnexpectedEventArgs, name, v)
	}
}

func (r *argReader) bigInt(name string) *big.Int {
	v, ok := r.values[name].(*big.Int)
	if !ok {
		r.fail(name, r.values[name])
		return new(big.Int)
	}
	return v
}

func (r *argReader) u64(name string) uint64 {
	v := r.bigInt(name)
	if !v.IsUint64() {
		r.fail(name, v)
		return 0
	}
	return v.Uint64()
}

func (r *argReader) u8(name string) uint8 {
	v, ok := r.values[name].(uint8)
	if !ok {
		r.fail(name, r.values[name])
	}
	return v
}

func (r *argReader) addr(name string) common.Address {
	v, ok := r.values[name].(common.Address)
	if !ok {
		r.fail(name, r.values[name])
	}
	return v
}

func (r *argReader) str(name string) string {
	v, ok := r.values[name].(string)
	if !ok {
		r.fail(name, r.values[name])
	}
	return v
}

func uintToBig(n uint) *big.Int {
	return new(big.Int).SetUint64(uint64(n))
}
