package contract_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/contract"
	"github.com/bridgekit/gravity-orchestrator/contract/abi"
	"github.com/bridgekit/gravity-orchestrator/entity"
)

var (
	gravityAddr = common.HexToAddress("0xa4108aA1Ec4967F8b52220a4f7e94A8201F2D906")
	tokenAddr   = common.HexToAddress("0xD50c0953a99325d01cca655E57070F1be4983b6b")
	senderAddr  = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
	txHash      = common.HexToHash("0x3f0f6b1b1e3c3a1fbd0e4d5bd8f2f7b6c0d4f1e2a3b4c5d6e7f8091a2b3c4d5e")
)

type callClient struct {
	result   []byte
	err      error
	logs     []types.Log
	safeUsed bool
}

func (c *callClient) BlockNumber(context.Context) (uint, error) { return 0, nil }

func (c *callClient) HeaderByNumber(context.Context, uint) (*types.Header, error) {
	return nil, errors.New("not implemented")
}

func (c *callClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	var res []types.Log
	for _, log := range c.logs {
		if log.BlockNumber >= q.FromBlock.Uint64() && log.BlockNumber <= q.ToBlock.Uint64() {
			res = append(res, log)
		}
	}
	return res, nil
}

func (c *callClient) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.safeUsed = true
	return c.FilterLogs(ctx, q)
}

func (c *callClient) CallContract(_ context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if *msg.To != gravityAddr {
		return nil, errors.New("unexpected call target")
	}
	return c.result, c.err
}

func packLog(t *testing.T, name string, topics []common.Hash, args ...interface{}) *types.Log {
	t.Helper()
	event := abi.GravityABI.Events[name]
	data, err := event.Inputs.NonIndexed().Pack(args...)
	require.NoError(t, err)
	return &types.Log{
		Address:     gravityAddr,
		Topics:      append([]common.Hash{event.ID}, topics...),
		Data:        data,
		BlockNumber: 120,
		TxHash:      txHash,
		Index:       3,
	}
}

func TestGravityContract_DecodeEvent(t *testing.T) {
	t.Parallel()

	c := contract.NewGravityContract(&callClient{}, "5", gravityAddr)

	for _, tc := range []struct {
		name     string
		log      func(t *testing.T) *types.Log
		expected entity.BridgeEvent
	}{
		{
			name: "deposit",
			log: func(t *testing.T) *types.Log {
				return packLog(t, abi.SendToCosmosEvent, []common.Hash{tokenAddr.Hash(), senderAddr.Hash()},
					"gravity1receiver", big.NewInt(1_000_000), big.NewInt(4))
			},
			expected: entity.BridgeEvent{
				EventNonce:    4,
				Kind:          entity.EventKindDeposit,
				TokenContract: tokenAddr,
				Sender:        senderAddr,
				Receiver:      "gravity1receiver",
				Amount:        entity.NewAmount(big.NewInt(1_000_000)),
			},
		},
		{
			name: "batch executed",
			log: func(t *testing.T) *types.Log {
				return packLog(t, abi.TransactionBatchExecutedEvent, []common.Hash{common.BigToHash(big.NewInt(9)), tokenAddr.Hash()},
					big.NewInt(5))
			},
			expected: entity.BridgeEvent{
				EventNonce:    5,
				Kind:          entity.EventKindBatchExecuted,
				TokenContract: tokenAddr,
				BatchNonce:    9,
			},
		},
		{
			name: "valset updated",
			log: func(t *testing.T) *types.Log {
				return packLog(t, abi.ValsetUpdatedEvent, []common.Hash{common.BigToHash(big.NewInt(2))},
					big.NewInt(6), big.NewInt(0), common.Address{}, []common.Address{senderAddr}, []*big.Int{big.NewInt(100)})
			},
			expected: entity.BridgeEvent{
				EventNonce:  6,
				Kind:        entity.EventKindValsetUpdated,
				ValsetNonce: 2,
				Amount:      entity.NewAmount(big.NewInt(0)),
			},
		},
		{
			name: "erc20 deployed",
			log: func(t *testing.T) *types.Log {
				return packLog(t, abi.ERC20DeployedEvent, []common.Hash{tokenAddr.Hash()},
					"ufootoken", "Foo", "FOO", uint8(6), big.NewInt(7))
			},
			expected: entity.BridgeEvent{
				EventNonce:    7,
				Kind:          entity.EventKindERC20Deployed,
				TokenContract: tokenAddr,
				CosmosDenom:   "ufootoken",
				Name:          "Foo",
				Symbol:        "FOO",
				Decimals:      6,
			},
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			e, err := c.DecodeEvent(tc.log(t))
			require.NoError(t, err)
			expected := tc.expected
			expected.ChainID = "5"
			expected.Contract = gravityAddr
			expected.BlockNumber = 120
			expected.LogIndex = 3
			expected.TransactionHash = txHash
			require.Equal(t, &expected, e)
		})
	}
}

func TestGravityContract_DecodeEvent_Rejects(t *testing.T) {
	t.Parallel()

	c := contract.NewGravityContract(&callClient{}, "5", gravityAddr)

	e, err := c.DecodeEvent(&types.Log{Address: gravityAddr, Topics: []common.Hash{common.HexToHash("0x01")}})
	require.NoError(t, err)
	require.Nil(t, e)

	_, err = c.DecodeEvent(packLog(t, abi.TransactionBatchExecutedEvent, []common.Hash{common.BigToHash(big.NewInt(9)), tokenAddr.Hash()},
		big.NewInt(0)))
	require.ErrorIs(t, err, contract.ErrUnexpectedEventArgs)
}

func TestGravityContract_LastEventNonce(t *testing.T) {
	t.Parallel()

	out, err := abi.GravityABI.Methods["state_lastEventNonce"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)
	c := contract.NewGravityContract(&callClient{result: out}, "5", gravityAddr)
	nonce, err := c.LastEventNonce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(42), nonce)

	c = contract.NewGravityContract(&callClient{err: errors.New("rpc is down")}, "5", gravityAddr)
	_, err = c.LastEventNonce(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "rpc is down")
}

func TestContract_FilterQuery(t *testing.T) {
	t.Parallel()

	c := contract.NewGravityContract(&callClient{}, "5", gravityAddr)
	q := c.FilterQuery(10, 20)
	require.Equal(t, big.NewInt(10), q.FromBlock)
	require.Equal(t, big.NewInt(20), q.ToBlock)
	require.Equal(t, []common.Address{gravityAddr}, q.Addresses)
	require.Len(t, q.Topics, 1)
	require.Contains(t, q.Topics[0], abi.GravityABI.Events[abi.ERC20DeployedEvent].ID)
}

func TestGravityContract_EventsInRange(t *testing.T) {
	t.Parallel()

	deposit := func(nonce int64, block uint64) types.Log {
		log := packLog(t, abi.SendToCosmosEvent, []common.Hash{tokenAddr.Hash(), senderAddr.Hash()},
			"gravity1receiver", big.NewInt(10), big.NewInt(nonce))
		log.BlockNumber = block
		return *log
	}
	removed := deposit(9, 12)
	removed.Removed = true
	client := &callClient{logs: []types.Log{
		deposit(3, 12),
		deposit(2, 11),
		removed,
		{Address: gravityAddr, Topics: []common.Hash{common.HexToHash("0x01")}, BlockNumber: 12},
		deposit(4, 30),
	}}
	c := contract.NewGravityContract(client, "5", gravityAddr)
	c.SafeLogs = true

	events, err := c.EventsInRange(context.Background(), 10, 20)
	require.NoError(t, err)
	require.True(t, client.safeUsed)
	require.Len(t, events, 2)
	require.Equal(t, uint64(2), events[0].EventNonce)
	require.Equal(t, uint64(3), events[1].EventNonce)
}
