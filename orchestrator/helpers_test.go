package orchestrator_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/chain/local"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/contract/abi"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

const (
	sourceChainID = "5"
	destChainID   = "gravity-test"
)

var (
	gravityAddr = common.HexToAddress("0xa4108aA1Ec4967F8b52220a4f7e94A8201F2D906")
	tokenAddr   = common.HexToAddress("0xD50c0953a99325d01cca655E57070F1be4983b6b")
	senderAddr  = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
	testDenom   = gravity.DenomPrefix + tokenAddr.Hex()
)

func bridgeConfig() *config.BridgeConfig {
	return &config.BridgeConfig{
		ChainName: "goerli",
		Chain: &config.ChainConfig{
			ChainID:            sourceChainID,
			BlockIndexInterval: 10 * time.Millisecond,
		},
		Address:            gravityAddr,
		StartBlock:         10,
		BlockConfirmations: 2,
		MaxBlockRangeSize:  50,
	}
}

func orchestratorConfig() *config.OrchestratorConfig {
	return &config.OrchestratorConfig{
		PollInterval: 10 * time.Millisecond,
		TxTimeout:    2 * time.Second,
		Retry: &config.RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     10 * time.Millisecond,
			Multiplier:      1,
		},
	}
}

// fakeEthClient serves logs of a simulated Gravity contract.
type fakeEthClient struct {
	mu   sync.Mutex
	head uint
	logs []types.Log
	err  error
}

func (c *fakeEthClient) setHead(head uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.head = head
}

func (c *fakeEthClient) addDeposit(t *testing.T, block uint64, nonce int64, amount int64, receiver string) {
	t.Helper()
	event := abi.GravityABI.Events[abi.SendToCosmosEvent]
	data, err := event.Inputs.NonIndexed().Pack(receiver, big.NewInt(amount), big.NewInt(nonce))
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logs = append(c.logs, types.Log{
		Address:     gravityAddr,
		Topics:      []common.Hash{event.ID, tokenAddr.Hash(), senderAddr.Hash()},
		Data:        data,
		BlockNumber: block,
		TxHash:      crypto.Keccak256Hash(big.NewInt(nonce).Bytes()),
	})
}

func (c *fakeEthClient) BlockNumber(context.Context) (uint, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.head, c.err
}

func (c *fakeEthClient) HeaderByNumber(context.Context, uint) (*types.Header, error) {
	return &types.Header{}, nil
}

func (c *fakeEthClient) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	var res []types.Log
	for _, log := range c.logs {
		if log.BlockNumber >= q.FromBlock.Uint64() && log.BlockNumber <= q.ToBlock.Uint64() {
			res = append(res, log)
		}
	}
	return res, nil
}

func (c *fakeEthClient) FilterLogsSafe(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return c.FilterLogs(ctx, q)
}

func (c *fakeEthClient) CallContract(context.Context, ethereum.CallMsg) ([]byte, error) {
	return nil, ethereum.NotFound
}

type testChain struct {
	node *local.Node
	keys []*ecdsa.PrivateKey
}

// newTestChain starts a destination chain with one equally powered validator per key.
func newTestChain(t *testing.T, validators int) *testChain {
	t.Helper()
	keys := make([]*ecdsa.PrivateKey, validators)
	genesis := make([]gravity.Validator, validators)
	for i := range keys {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = key
		genesis[i] = gravity.Validator{
			Operator:     common.BigToAddress(big.NewInt(int64(i + 1))),
			Orchestrator: crypto.PubkeyToAddress(key.PublicKey),
			Power:        10,
		}
	}
	bank := local.NewBank()
	keeper, err := gravity.NewKeeper(logging.NewNop(), destChainID, gravity.DefaultParams(), genesis, bank, nil)
	require.NoError(t, err)
	node := local.NewNode(logging.NewNop(), local.Config{
		BlockTime:          5 * time.Millisecond,
		VotingPeriodBlocks: 3,
		Clock:              local.SimulatedClock(time.Unix(1_700_000_000, 0), time.Second),
	}, keeper, bank)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		node.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return &testChain{node: node, keys: keys}
}

func depositEvent(nonce uint64, amount int64) *entity.BridgeEvent {
	return &entity.BridgeEvent{
		ChainID:       sourceChainID,
		Contract:      gravityAddr,
		EventNonce:    nonce,
		Kind:          entity.EventKindDeposit,
		BlockNumber:   uint(100 + nonce),
		TokenContract: tokenAddr,
		Sender:        senderAddr,
		Receiver:      "gravity1receiver",
		Amount:        entity.NewAmount(big.NewInt(amount)),
	}
}
