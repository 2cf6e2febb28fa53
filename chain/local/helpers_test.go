package local_test

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/chain/local"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

const (
	testChainID     = "gravity-local"
	testNativeDenom = "ufootoken"
	txTimeout       = 5 * time.Second
)

var (
	genesisTime = time.Unix(1_700_000_000, 0)
	testToken   = common.HexToAddress("0xD50c0953a99325d01cca655E57070F1be4983b6b")
	testSender  = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
	testDenom   = gravity.DenomPrefix + testToken.Hex()
)

type validator struct {
	key      *ecdsa.PrivateKey
	operator common.Address
}

func (v validator) orchestrator() common.Address {
	return crypto.PubkeyToAddress(v.key.PublicKey)
}

type testChain struct {
	node       *local.Node
	validators []validator
}

// newTestChain creates a node over validators with the given powers. Every block moves
// the chain clock by 10 seconds.
func newTestChain(t *testing.T, stallWindow time.Duration, blockTime time.Duration, powers ...uint64) *testChain {
	t.Helper()
	params := gravity.DefaultParams()
	params.StallWindow = stallWindow
	validators := make([]validator, len(powers))
	genesis := make([]gravity.Validator, len(powers))
	for i, power := range powers {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		operatorKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		validators[i] = validator{key: key, operator: crypto.PubkeyToAddress(operatorKey.PublicKey)}
		genesis[i] = gravity.Validator{
			Operator:     validators[i].operator,
			Orchestrator: validators[i].orchestrator(),
			Power:        power,
		}
	}
	bank := local.NewBank()
	keeper, err := gravity.NewKeeper(logging.NewNop(), testChainID, params, genesis, bank, []string{testNativeDenom})
	require.NoError(t, err)
	node := local.NewNode(logging.NewNop(), local.Config{
		BlockTime:          blockTime,
		VotingPeriodBlocks: 3,
		Clock:              local.SimulatedClock(genesisTime, 10*time.Second),
	}, keeper, bank)
	return &testChain{node: node, validators: validators}
}

// start runs block production in the background until the test ends.
func (c *testChain) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.node.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func signClaim(v validator, claim gravity.Claim) (*gravity.MsgClaim, error) {
	claim.Orchestrator = v.orchestrator()
	sig, err := utils.SignData(v.key, claim.SignBytes(testChainID))
	if err != nil {
		return nil, err
	}
	return &gravity.MsgClaim{Claim: &claim, Signature: sig}, nil
}

func (c *testChain) sign(t *testing.T, v validator, claim gravity.Claim) *gravity.MsgClaim {
	t.Helper()
	msg, err := signClaim(v, claim)
	require.NoError(t, err)
	return msg
}

// send submits the claim and waits for its receipt, returning the error it was rejected with.
func (c *testChain) send(ctx context.Context, v validator, claim gravity.Claim) error {
	msg, err := signClaim(v, claim)
	if err != nil {
		return err
	}
	hash, err := c.node.SubmitTransaction(ctx, msg)
	if err != nil {
		return err
	}
	receipt, err := c.node.WaitForTx(ctx, hash, txTimeout)
	if err != nil {
		return err
	}
	return receipt.Err()
}

func deposit(nonce uint64, amount int64, receiver string) gravity.Claim {
	return gravity.Claim{
		Type:           gravity.ClaimTypeSendToCosmos,
		EventNonce:     nonce,
		BlockHeight:    100 + nonce,
		TokenContract:  testToken,
		Amount:         big.NewInt(amount),
		EthereumSender: testSender,
		CosmosReceiver: receiver,
	}
}
