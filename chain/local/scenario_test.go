package local_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/chain/local"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/halt"
	"github.com/bridgekit/gravity-orchestrator/retry"
	"github.com/bridgekit/gravity-orchestrator/tasks"
)

const receiver = "gravity1receiver"

func awaitStatus(ctx context.Context, t *testing.T, c *testChain, cond func(s *gravity.BridgeStatus) bool) {
	t.Helper()
	err := retry.Await(ctx, retry.Fixed(5*time.Millisecond, txTimeout), func(ctx context.Context) (bool, error) {
		status, err := c.node.BridgeStatus(ctx)
		if err != nil {
			return false, err
		}
		return cond(status), nil
	})
	require.NoError(t, err)
}

func sendAll(ctx context.Context, t *testing.T, c *testChain, validators []validator, claim gravity.Claim) {
	t.Helper()
	_, err := tasks.Each(ctx, 0, validators, func(ctx context.Context, v validator) (struct{}, error) {
		return struct{}{}, c.send(ctx, v, claim)
	})
	require.NoError(t, err)
}

func TestScenario_HappyPath(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, time.Minute, 5*time.Millisecond, 10, 10, 10)
	c.start(t)
	ctx := context.Background()

	for nonce := uint64(1); nonce <= 3; nonce++ {
		claim := deposit(nonce, 1_000_000, receiver)
		results, err := tasks.Each(ctx, 0, c.validators, func(ctx context.Context, v validator) (struct{}, error) {
			return struct{}{}, c.send(ctx, v, claim)
		})
		require.NoError(t, err)
		require.Len(t, results, len(c.validators))
	}

	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.LastObservedNonce == 3
	})
	require.Equal(t, big.NewInt(3_000_000), c.node.Bank().Balance(receiver, testDenom))

	observed := true
	atts, err := c.node.Attestations(ctx, gravity.AttestationFilter{Observed: &observed})
	require.NoError(t, err)
	require.Len(t, atts, 3)
	for _, att := range atts {
		require.Len(t, att.Votes, 3)
	}
}

// TestScenario_UnhaltBridge has half of the voting power attest a fake deposit, waits for the
// bridge to halt, resets it through governance and bridges again.
func TestScenario_UnhaltBridge(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, time.Minute, 5*time.Millisecond, 25, 25, 25, 25)
	c.start(t)
	ctx := context.Background()
	honest, liars := c.validators[:2], c.validators[2:]

	sendAll(ctx, t, c, c.validators, deposit(1, 1_000_000, receiver))
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.LastObservedNonce == 1
	})

	sendAll(ctx, t, c, honest, deposit(2, 1_000_000, receiver))
	sendAll(ctx, t, c, liars, deposit(2, 5_000_000_000, "gravity1thief"))

	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.State == halt.Halted
	})
	status, err := c.node.BridgeStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.Contested)
	require.Equal(t, uint64(1), status.LastObservedNonce)
	require.Equal(t, uint64(2), status.MaxValidatorNonce())
	require.Equal(t, 0, c.node.Bank().Balance("gravity1thief", testDenom).Sign())

	id, err := c.node.SubmitParameterChangeProposal(ctx, honest[0].operator, "unhalt bridge",
		local.ResetBridgeChanges(1), big.NewInt(1), txTimeout)
	require.NoError(t, err)
	for _, v := range c.validators[:3] {
		require.NoError(t, c.node.VoteOnProposal(ctx, v.operator, id, local.VoteYes, txTimeout))
	}

	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.State == halt.Normal && s.MaxValidatorNonce() == 1
	})
	require.True(t, c.node.Gov().ProposalPassed(id))
	params := c.node.Keeper().Params()
	require.False(t, params.ResetBridgeState)
	require.Zero(t, params.ResetBridgeNonce)

	sendAll(ctx, t, c, c.validators, deposit(2, 1_000_000, receiver))
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.LastObservedNonce == 2
	})
	require.Equal(t, big.NewInt(2_000_000), c.node.Bank().Balance(receiver, testDenom))
	require.Equal(t, 0, c.node.Bank().Balance("gravity1thief", testDenom).Sign())

	// the reset is applied once, later blocks keep the nonces
	c.node.ProduceBlock()
	status, err = c.node.BridgeStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), status.MinValidatorNonce())
}

// TestScenario_FalseClaimReset has two of three equally powered validators attest a false deposit
// while the third one stays silent, then unhalts the bridge through governance.
func TestScenario_FalseClaimReset(t *testing.T) {
	t.Parallel()

	c := newTestChain(t, time.Minute, 5*time.Millisecond, 10, 10, 10)
	c.start(t)
	ctx := context.Background()
	v1, liars := c.validators[0], c.validators[1:]

	footoken := common.HexToAddress("0x7580bFE88Dd3d07947908FAE12d95872a260F2D8")
	sendAll(ctx, t, c, c.validators, gravity.Claim{
		Type:          gravity.ClaimTypeERC20Deployed,
		EventNonce:    1,
		BlockHeight:   90,
		TokenContract: footoken,
		CosmosDenom:   testNativeDenom,
		Name:          "Foo Token",
		Symbol:        "FOO",
		Decimals:      6,
	})
	sendAll(ctx, t, c, c.validators, deposit(2, 1_000_000, receiver))
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.LastObservedNonce == 2
	})
	erc20, err := c.node.DenomToERC20(ctx, testNativeDenom)
	require.NoError(t, err)
	require.Equal(t, &gravity.DenomToERC20{ERC20: footoken, CosmosOriginated: true}, erc20)
	require.Equal(t, big.NewInt(1_000_000), c.node.Bank().Balance(receiver, testDenom))

	sendAll(ctx, t, c, liars, deposit(3, 5_000_000_000, "gravity1thief"))
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.State == halt.Halted
	})
	status, err := c.node.BridgeStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.Contested)
	require.False(t, status.Quorate)
	require.Equal(t, uint64(2), status.LastObservedNonce)
	nonces := make([]uint64, len(c.validators))
	for i, v := range c.validators {
		nonces[i], err = c.node.LastEventNonceForValidator(ctx, v.operator)
		require.NoError(t, err)
	}
	require.Equal(t, []uint64{2, 3, 3}, nonces)
	require.Equal(t, 0, c.node.Bank().Balance("gravity1thief", testDenom).Sign())

	id, err := c.node.SubmitParameterChangeProposal(ctx, v1.operator, "reset bridge to nonce 2",
		local.ResetBridgeChanges(2), big.NewInt(1), txTimeout)
	require.NoError(t, err)
	for _, v := range c.validators {
		require.NoError(t, c.node.VoteOnProposal(ctx, v.operator, id, local.VoteYes, txTimeout))
	}
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.State == halt.Normal && s.MaxValidatorNonce() == 2
	})
	require.True(t, c.node.Gov().ProposalPassed(id))
	pending := false
	atts, err := c.node.Attestations(ctx, gravity.AttestationFilter{Nonce: 3, Observed: &pending})
	require.NoError(t, err)
	require.Empty(t, atts)

	sendAll(ctx, t, c, c.validators, deposit(3, 1_000_000, receiver))
	awaitStatus(ctx, t, c, func(s *gravity.BridgeStatus) bool {
		return s.LastObservedNonce == 3
	})
	require.Equal(t, big.NewInt(2_000_000), c.node.Bank().Balance(receiver, testDenom))
	require.Equal(t, 0, c.node.Bank().Balance("gravity1thief", testDenom).Sign())
}
