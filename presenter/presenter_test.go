package presenter_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/chain/local"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/halt"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/presenter"
	"github.com/bridgekit/gravity-orchestrator/presenter/http/render"
	"github.com/bridgekit/gravity-orchestrator/repository"
)

const testChainID = "gravity-presenter"

var (
	testToken  = common.HexToAddress("0xD50c0953a99325d01cca655E57070F1be4983b6b")
	testSender = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
	sampleTime = time.Unix(1_700_000_000, 0).UTC()
)

func deposit(nonce uint64, receiver string) *gravity.Claim {
	return &gravity.Claim{
		Type:           gravity.ClaimTypeSendToCosmos,
		EventNonce:     nonce,
		BlockHeight:    100 + nonce,
		TokenContract:  testToken,
		Amount:         big.NewInt(1_000_000),
		EthereumSender: testSender,
		CosmosReceiver: receiver,
	}
}

// newPresenter serves a chain where nonce 1 is observed and nonce 2 is contested.
func newPresenter(t *testing.T) (*presenter.Presenter, []gravity.Validator) {
	t.Helper()
	validators := make([]gravity.Validator, 3)
	for i := range validators {
		orchKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		opKey, err := crypto.GenerateKey()
		require.NoError(t, err)
		validators[i] = gravity.Validator{
			Operator:     crypto.PubkeyToAddress(opKey.PublicKey),
			Orchestrator: crypto.PubkeyToAddress(orchKey.PublicKey),
			Power:        10,
		}
	}
	bank := local.NewBank()
	keeper, err := gravity.NewKeeper(logging.NewNop(), testChainID, gravity.DefaultParams(), validators, bank, nil)
	require.NoError(t, err)
	node := local.NewNode(logging.NewNop(), local.Config{BlockTime: time.Second}, keeper, bank)

	block := gravity.BlockInfo{Height: 1, Time: sampleTime}
	for _, v := range validators {
		claim := deposit(1, "gravity1receiver")
		claim.Orchestrator = v.Orchestrator
		require.NoError(t, keeper.SubmitClaim(block, claim))
	}
	for i, receiver := range []string{"gravity1receiver", "gravity1thief"} {
		claim := deposit(2, receiver)
		claim.Orchestrator = validators[i].Orchestrator
		require.NoError(t, keeper.SubmitClaim(block, claim))
	}

	repo := repository.NewMemoryRepo()
	for i, state := range []halt.State{halt.Normal, halt.Halted} {
		require.NoError(t, repo.BridgeStateSamples.Insert(context.Background(), &entity.BridgeStateSample{
			ChainID:           testChainID,
			State:             state.String(),
			LastObservedNonce: 1,
			MaxValidatorNonce: 2,
			MinValidatorNonce: 1,
			Contested:         true,
			SampledAt:         sampleTime.Add(time.Duration(i) * time.Minute),
		}))
	}
	return presenter.NewPresenter(logging.NewNop(), node, repo, testChainID), validators
}

func get(t *testing.T, p *presenter.Presenter, path string, res interface{}) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	p.ServeHTTP(rec, req)
	if res != nil {
		require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), res))
	}
	return rec.Code
}

func TestPresenter_LastEventNonce(t *testing.T) {
	t.Parallel()

	p, validators := newPresenter(t)

	res := new(presenter.LastEventNonceResult)
	require.Equal(t, http.StatusOK, get(t, p, "/validators/"+validators[0].Orchestrator.Hex()+"/last_event_nonce", res))
	require.Equal(t, uint64(2), res.EventNonce)
	require.Equal(t, validators[0].Orchestrator, res.Address)

	res = new(presenter.LastEventNonceResult)
	require.Equal(t, http.StatusOK, get(t, p, "/validators/"+validators[2].Operator.Hex()+"/last_event_nonce", res))
	require.Equal(t, uint64(1), res.EventNonce)

	errRes := new(render.ErrorResponse)
	require.Equal(t, http.StatusNotFound, get(t, p, "/validators/0x0000000000000000000000000000000000000001/last_event_nonce", errRes))
	require.Equal(t, gravity.CodeUnauthorized, errRes.Code)

	errRes = new(render.ErrorResponse)
	require.Equal(t, http.StatusBadRequest, get(t, p, "/validators/validator1/last_event_nonce", errRes))
	require.Equal(t, gravity.CodeInternal, errRes.Code)
}

func TestPresenter_Attestations(t *testing.T) {
	t.Parallel()

	p, validators := newPresenter(t)

	for _, tc := range []struct {
		name   string
		query  string
		nonces []uint64
		votes  []int
	}{
		{name: "all", query: "", nonces: []uint64{1, 2, 2}, votes: []int{3, 1, 1}},
		{name: "observed", query: "?observed=true", nonces: []uint64{1}, votes: []int{3}},
		{name: "pending", query: "?observed=false&nonce=2", nonces: []uint64{2, 2}, votes: []int{1, 1}},
		{name: "limited", query: "?limit=1", nonces: []uint64{2}, votes: []int{1}},
		{name: "by type", query: "?type=valset_updated", nonces: []uint64{}, votes: []int{}},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var res []*gravity.Attestation
			require.Equal(t, http.StatusOK, get(t, p, "/attestations"+tc.query, &res))
			nonces := make([]uint64, len(res))
			votes := make([]int, len(res))
			for i, att := range res {
				nonces[i] = att.EventNonce
				votes[i] = len(att.Votes)
			}
			require.Equal(t, tc.nonces, nonces)
			require.Equal(t, tc.votes, votes)
		})
	}

	var res []*gravity.Attestation
	require.Equal(t, http.StatusOK, get(t, p, "/attestations?nonce=1", &res))
	require.Len(t, res, 1)
	require.True(t, res[0].Observed)
	require.Equal(t, big.NewInt(1_000_000), res[0].Claim.Amount)
	require.ElementsMatch(t, []common.Address{validators[0].Operator, validators[1].Operator, validators[2].Operator}, res[0].Votes)

	require.Equal(t, http.StatusBadRequest, get(t, p, "/attestations?nonce=first", new(render.ErrorResponse)))
	require.Equal(t, http.StatusBadRequest, get(t, p, "/attestations?observed=maybe", new(render.ErrorResponse)))
}

func TestPresenter_DenomToERC20(t *testing.T) {
	t.Parallel()

	p, _ := newPresenter(t)

	res := new(gravity.DenomToERC20)
	require.Equal(t, http.StatusOK, get(t, p, "/denoms/"+gravity.DenomPrefix+testToken.Hex()+"/erc20", res))
	require.Equal(t, testToken, res.ERC20)
	require.False(t, res.CosmosOriginated)

	errRes := new(render.ErrorResponse)
	require.Equal(t, http.StatusNotFound, get(t, p, "/denoms/ugraviton/erc20", errRes))
	require.Equal(t, gravity.CodeUnknownDenom, errRes.Code)
}

func TestPresenter_BridgeStatus(t *testing.T) {
	t.Parallel()

	p, validators := newPresenter(t)

	res := new(gravity.BridgeStatus)
	require.Equal(t, http.StatusOK, get(t, p, "/bridge/status", res))
	require.Equal(t, halt.Normal, res.State)
	require.Equal(t, uint64(1), res.LastObservedNonce)
	require.True(t, res.Contested)
	require.Equal(t, uint64(2), res.ValidatorNonces[validators[0].Operator])
	require.Equal(t, uint64(1), res.ValidatorNonces[validators[2].Operator])
}

func TestPresenter_BridgeHistory(t *testing.T) {
	t.Parallel()

	p, _ := newPresenter(t)

	res := new(presenter.BridgeHistoryResult)
	require.Equal(t, http.StatusOK, get(t, p, "/bridge/history", res))
	require.Equal(t, testChainID, res.ChainID)
	require.Len(t, res.Samples, 2)
	require.Equal(t, "halted", res.Samples[0].State)
	require.True(t, res.Samples[0].SampledAt.Equal(sampleTime.Add(time.Minute)))

	res = new(presenter.BridgeHistoryResult)
	require.Equal(t, http.StatusOK, get(t, p, "/bridge/history?limit=1", res))
	require.Len(t, res.Samples, 1)

	require.Equal(t, http.StatusBadRequest, get(t, p, "/bridge/history?limit=5000", new(render.ErrorResponse)))
}
