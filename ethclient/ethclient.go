// Package ethclient wraps the JSON-RPC connection to the Ethereum side of the bridge.
package ethclient

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	ErrIncompatibleChainID = errors.New("rpc url returned incompatible chainID")
	ErrNodeIsNotSynced     = errors.New("node is not synced to the requested block")
	ErrInvalidLogsQuery    = errors.New("invalid logs filter query")
)

// Client is the subset of Ethereum JSON-RPC needed to observe the Gravity contract.
type Client interface {
	BlockNumber(ctx context.Context) (uint, error)
	HeaderByNumber(ctx context.Context, n uint) (*types.Header, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

type rpcClient struct {
	chainID   string
	url       string
	timeout   time.Duration
	rawClient *rpc.Client
	client    *ethclient.Client
}

func NewClient(url string, timeout time.Duration, chainID string) (Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	rawClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("can't dial JSON rpc url: %w", err)
	}
	c := &rpcClient{
		chainID:   chainID,
		url:       url,
		timeout:   timeout,
		rawClient: rawClient,
		client:    ethclient.NewClient(rawClient),
	}
	rpcChainID, err := c.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get chainID: %w", err)
	}
	if rpcChainID.String() != chainID {
		return nil, fmt.Errorf("received chainID %s != expected %s: %w", rpcChainID, chainID, ErrIncompatibleChainID)
	}
	return c, nil
}

// call runs one request under the client timeout and records its duration and outcome.
func call[T any](ctx context.Context, c *rpcClient, method string, fn func(ctx context.Context) (T, error)) (T, error) {
	defer ObserveDuration(c.chainID, c.url, method)()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := fn(ctx)
	ObserveError(c.chainID, c.url, method, err)
	return res, err
}

func (c *rpcClient) BlockNumber(ctx context.Context) (uint, error) {
	n, err := call(ctx, c, "eth_blockNumber", c.client.BlockNumber)
	return uint(n), err
}

func (c *rpcClient) HeaderByNumber(ctx context.Context, n uint) (*types.Header, error) {
	return call(ctx, c, "eth_getBlockByNumber", func(ctx context.Context) (*types.Header, error) {
		return c.client.HeaderByNumber(ctx, new(big.Int).SetUint64(uint64(n)))
	})
}

func (c *rpcClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "eth_getLogs", func(ctx context.Context) ([]types.Log, error) {
		return c.client.FilterLogs(ctx, q)
	})
}

// FilterLogsSafe is the same as FilterLogs, but batches an additional eth_blockNumber
// request to make sure the node behind RPC is synced up to q.ToBlock.
func (c *rpcClient) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return call(ctx, c, "eth_getLogsSafe", func(ctx context.Context) ([]types.Log, error) {
		arg, err := toFilterArg(q)
		if err != nil {
			return nil, fmt.Errorf("can't encode filter argument: %w", err)
		}
		var logs []types.Log
		var blockNumber hexutil.Uint64
		batch := []rpc.BatchElem{
			{Method: "eth_getLogs", Args: []interface{}{arg}, Result: &logs},
			{Method: "eth_blockNumber", Result: &blockNumber},
		}
		if err = c.rawClient.BatchCallContext(ctx, batch); err != nil {
			return nil, fmt.Errorf("can't make batch request: %w", err)
		}
		if err = batch[0].Error; err != nil {
			return nil, fmt.Errorf("can't request logs: %w", err)
		}
		if err = batch[1].Error; err != nil {
			return nil, fmt.Errorf("can't request block number: %w", err)
		}
		if uint64(blockNumber) < q.ToBlock.Uint64() {
			return nil, fmt.Errorf("current block %d is older than toBlock %s in the query: %w", blockNumber, q.ToBlock, ErrNodeIsNotSynced)
		}
		return logs, nil
	})
}

func (c *rpcClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return call(ctx, c, "eth_call", func(ctx context.Context) ([]byte, error) {
		return c.client.CallContract(ctx, msg, nil)
	})
}

func toFilterArg(q ethereum.FilterQuery) (interface{}, error) {
	if q.BlockHash != nil {
		return nil, ErrInvalidLogsQuery
	}
	if q.ToBlock == nil || q.ToBlock.Sign() <= 0 {
		return nil, fmt.Errorf("only positive toBlock is supported: %w", ErrInvalidLogsQuery)
	}
	arg := map[string]interface{}{
		"address":   q.Addresses,
		"topics":    q.Topics,
		"fromBlock": "0x0",
		"toBlock":   hexutil.EncodeBig(q.ToBlock),
	}
	if q.FromBlock != nil {
		arg["fromBlock"] = hexutil.EncodeBig(q.FromBlock)
	}
	return arg, nil
}
