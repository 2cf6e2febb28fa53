package gravity_test

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

const (
	testChainID     = "gravity-test"
	testNativeDenom = "ufootoken"
)

var (
	genesisTime = time.Unix(1_700_000_000, 0)
	testToken   = common.HexToAddress("0xD50c0953a99325d01cca655E57070F1be4983b6b")
	testSender  = common.HexToAddress("0x5d3a536E4D6DbD6114cc1Ead35777bAB948E3643")
)

type testValidator struct {
	key          *ecdsa.PrivateKey
	operator     common.Address
	orchestrator common.Address
}

type fakeBank struct {
	mu       sync.Mutex
	balances map[string]*big.Int
}

func (b *fakeBank) Mint(receiver, denom string, amount *big.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := receiver + "/" + denom
	if b.balances[key] == nil {
		b.balances[key] = new(big.Int)
	}
	b.balances[key].Add(b.balances[key], amount)
	return nil
}

func (b *fakeBank) balance(receiver, denom string) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v := b.balances[receiver+"/"+denom]; v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

type fakeGov map[uint64]bool

func (g fakeGov) ProposalPassed(id uint64) bool {
	return g[id]
}

type testEnv struct {
	keeper     *gravity.Keeper
	validators []testValidator
	bank       *fakeBank
	gov        fakeGov
	height     uint64
	now        time.Time
}

func newTestEnv(t *testing.T, params gravity.Params, powers ...uint64) *testEnv {
	t.Helper()
	validators := make([]testValidator, len(powers))
	genesis := make([]gravity.Validator, len(powers))
	for i, power := range powers {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		validators[i] = testValidator{
			key:          key,
			operator:     common.BigToAddress(big.NewInt(int64(i + 1))),
			orchestrator: crypto.PubkeyToAddress(key.PublicKey),
		}
		genesis[i] = gravity.Validator{
			Operator:     validators[i].operator,
			Orchestrator: validators[i].orchestrator,
			Power:        power,
		}
	}
	bank := &fakeBank{balances: make(map[string]*big.Int)}
	k, err := gravity.NewKeeper(logging.NewNop(), testChainID, params, genesis, bank, []string{testNativeDenom})
	require.NoError(t, err)
	gov := fakeGov{}
	k.SetGovernanceAuthority(gov)
	return &testEnv{
		keeper:     k,
		validators: validators,
		bank:       bank,
		gov:        gov,
		height:     1,
		now:        genesisTime,
	}
}

func (e *testEnv) block() gravity.BlockInfo {
	return gravity.BlockInfo{Height: e.height, Time: e.now}
}

func (e *testEnv) advance(d time.Duration) {
	e.height++
	e.now = e.now.Add(d)
	e.keeper.EndBlocker(e.block())
}

func (e *testEnv) submit(v int, claim *gravity.Claim) error {
	c := *claim
	c.Orchestrator = e.validators[v].orchestrator
	return e.keeper.SubmitClaim(e.block(), &c)
}

func (e *testEnv) nonce(t *testing.T, v int) uint64 {
	t.Helper()
	n, err := e.keeper.LastEventNonceByValidator(e.validators[v].orchestrator)
	require.NoError(t, err)
	return n
}

func deposit(nonce uint64, amount int64, receiver string) *gravity.Claim {
	return &gravity.Claim{
		Type:           gravity.ClaimTypeSendToCosmos,
		EventNonce:     nonce,
		BlockHeight:    100 + nonce,
		TokenContract:  testToken,
		Amount:         big.NewInt(amount),
		EthereumSender: testSender,
		CosmosReceiver: receiver,
	}
}

func params(num, den uint64) gravity.Params {
	p := gravity.DefaultParams()
	p.QuorumNumerator, p.QuorumDenominator = num, den
	p.StallWindow = time.Minute
	return p
}

func observedAt(k *gravity.Keeper, nonce uint64) []*gravity.Attestation {
	observed := true
	return k.Attestations(gravity.AttestationFilter{Nonce: nonce, Observed: &observed})
}
