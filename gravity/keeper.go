// Package gravity implements the destination chain side of the bridge: it aggregates validator
// claims into attestations, finalizes them in nonce order and keeps the bridge state.
package gravity

import (
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/halt"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

// Bank credits bridged tokens on the destination chain.
type Bank interface {
	Mint(receiver, denom string, amount *big.Int) error
}

// GovernanceAuthority tells whether a governance proposal has passed.
type GovernanceAuthority interface {
	ProposalPassed(id uint64) bool
}

type Keeper struct {
	mu     sync.RWMutex
	logger logging.Logger

	chainID string
	bank    Bank
	gov     GovernanceAuthority
	params  Params

	validators    map[common.Address]*Validator
	orchestrators map[common.Address]common.Address
	totalPower    uint64

	validatorNonces map[common.Address]uint64
	attestations    map[uint64][]*Attestation

	lastObservedNonce       uint64
	lastObservedEthHeight   uint64
	lastObservedValsetNonce uint64

	erc20ToDenom map[common.Address]string
	denomToERC20 map[string]common.Address
	nativeDenoms map[string]bool
	batches      map[common.Address]map[uint64]*OutgoingBatch

	detector      *halt.Detector
	state         halt.State
	resetProposal uint64
	appliedResets map[uint64]uint64
}

func NewKeeper(logger logging.Logger, chainID string, params Params, validators []Validator, bank Bank, nativeDenoms []string) (*Keeper, error) {
	if params.QuorumDenominator == 0 || params.QuorumNumerator >= params.QuorumDenominator {
		return nil, fmt.Errorf("invalid quorum %d/%d", params.QuorumNumerator, params.QuorumDenominator)
	}
	k := &Keeper{
		logger:          logger,
		chainID:         chainID,
		bank:            bank,
		params:          params,
		validators:      make(map[common.Address]*Validator, len(validators)),
		orchestrators:   make(map[common.Address]common.Address, len(validators)),
		validatorNonces: make(map[common.Address]uint64, len(validators)),
		attestations:    make(map[uint64][]*Attestation),
		erc20ToDenom:    make(map[common.Address]string),
		denomToERC20:    make(map[string]common.Address),
		nativeDenoms:    make(map[string]bool, len(nativeDenoms)),
		batches:         make(map[common.Address]map[uint64]*OutgoingBatch),
		detector:        halt.NewDetector(params.StallWindow),
		appliedResets:   make(map[uint64]uint64),
	}
	for _, v := range validators {
		v := v
		if v.Power == 0 {
			return nil, fmt.Errorf("validator %s has zero power", v.Operator)
		}
		if _, ok := k.validators[v.Operator]; ok {
			return nil, fmt.Errorf("duplicate validator %s", v.Operator)
		}
		if _, ok := k.orchestrators[v.Orchestrator]; ok {
			return nil, fmt.Errorf("orchestrator %s is bound twice", v.Orchestrator)
		}
		k.validators[v.Operator] = &v
		k.orchestrators[v.Orchestrator] = v.Operator
		k.validatorNonces[v.Operator] = 0
		k.totalPower += v.Power
	}
	for _, denom := range nativeDenoms {
		k.nativeDenoms[denom] = true
	}
	return k, nil
}

func (k *Keeper) SetGovernanceAuthority(gov GovernanceAuthority) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gov = gov
}

func (k *Keeper) ChainID() string {
	return k.chainID
}

// HandleClaimMsg authenticates the message signature and submits the claim.
func (k *Keeper) HandleClaimMsg(block BlockInfo, msg *MsgClaim) error {
	if msg == nil || msg.Claim == nil {
		return fmt.Errorf("%w: empty message", ErrInvalidClaim)
	}
	signer, err := utils.RestoreSignerAddress(msg.Claim.SignBytes(k.chainID), msg.Signature)
	if err != nil {
		k.observeClaim(msg.Claim, ErrInvalidSignature)
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if signer != msg.Claim.Orchestrator {
		k.observeClaim(msg.Claim, ErrInvalidSignature)
		return fmt.Errorf("%w: signed by %s, claimed by %s", ErrInvalidSignature, signer, msg.Claim.Orchestrator)
	}
	return k.SubmitClaim(block, msg.Claim)
}

// SubmitClaim records the claim as a vote of the orchestrator's validator. The claim must carry
// exactly the next event nonce expected from that validator.
func (k *Keeper) SubmitClaim(block BlockInfo, claim *Claim) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	err := k.submitClaim(block, claim)
	k.observeClaim(claim, err)
	return err
}

func (k *Keeper) observeClaim(claim *Claim, err error) {
	ClaimResults.WithLabelValues(k.chainID, string(claim.Type), claimResult(err)).Inc()
}

func (k *Keeper) submitClaim(block BlockInfo, claim *Claim) error {
	if err := claim.ValidateBasic(); err != nil {
		return err
	}
	operator, ok := k.orchestrators[claim.Orchestrator]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnauthorized, claim.Orchestrator)
	}
	expected := k.validatorNonces[operator] + 1
	if claim.EventNonce != expected {
		return fmt.Errorf("%w: validator %s expected %d, got %d", ErrNonceGap, operator, expected, claim.EventNonce)
	}

	hash := claim.ClaimHash()
	att := k.findAttestation(claim.EventNonce, hash)
	if att == nil {
		c := *claim
		c.Amount = cloneInt(claim.Amount)
		c.Orchestrator = common.Address{}
		att = &Attestation{
			EventNonce: claim.EventNonce,
			ClaimHash:  hash,
			Claim:      c,
			Height:     block.Height,
		}
		k.attestations[claim.EventNonce] = append(k.attestations[claim.EventNonce], att)
	}
	att.Votes = append(att.Votes, operator)
	att.Power += k.validators[operator].Power
	k.validatorNonces[operator] = claim.EventNonce
	ValidatorEventNonce.WithLabelValues(k.chainID, operator.String()).Set(float64(claim.EventNonce))

	k.logger.WithFields(logrus.Fields{
		"validator":   operator,
		"event_nonce": claim.EventNonce,
		"claim_hash":  hash,
		"claim_type":  claim.Type,
		"power":       att.Power,
	}).Debug("accepted claim")

	k.evaluateState(block)
	k.tally(block)
	return nil
}

func (k *Keeper) findAttestation(nonce uint64, hash common.Hash) *Attestation {
	for _, att := range k.attestations[nonce] {
		if att.ClaimHash == hash {
			return att
		}
	}
	return nil
}

func (k *Keeper) quorate(att *Attestation) bool {
	// power/total > numerator/denominator, kept in integers
	lhs := new(big.Int).Mul(new(big.Int).SetUint64(att.Power), new(big.Int).SetUint64(k.params.QuorumDenominator))
	rhs := new(big.Int).Mul(new(big.Int).SetUint64(k.totalPower), new(big.Int).SetUint64(k.params.QuorumNumerator))
	return lhs.Cmp(rhs) > 0
}

// tally finalizes attestations strictly in nonce order starting right after the last observed one.
func (k *Keeper) tally(block BlockInfo) {
	if !k.params.BridgeActive || k.state == halt.Halted {
		return
	}
	for {
		next := k.lastObservedNonce + 1
		var winner *Attestation
		for _, att := range k.attestations[next] {
			if !att.Observed && k.quorate(att) {
				winner = att
				break
			}
		}
		if winner == nil {
			return
		}
		k.finalize(block, winner)
	}
}

func (k *Keeper) finalize(block BlockInfo, att *Attestation) {
	att.Observed = true
	k.lastObservedNonce = att.EventNonce
	k.lastObservedEthHeight = att.Claim.BlockHeight
	LastObservedEventNonce.WithLabelValues(k.chainID).Set(float64(att.EventNonce))

	logger := k.logger.WithFields(logrus.Fields{
		"event_nonce": att.EventNonce,
		"claim_hash":  att.ClaimHash,
		"claim_type":  att.Claim.Type,
		"height":      block.Height,
	})
	if err := k.applyClaim(&att.Claim); err != nil {
		logger.WithError(err).Error("attestation observed, but its effect could not be applied")
		return
	}
	logger.Info("attestation observed")
}

func (k *Keeper) snapshot() halt.Snapshot {
	nonces := make(map[common.Address]uint64, len(k.validatorNonces))
	for addr, n := range k.validatorNonces {
		nonces[addr] = n
	}
	pending, quorate := 0, false
	for _, att := range k.attestations[k.lastObservedNonce+1] {
		if !att.Observed {
			pending++
			quorate = quorate || k.quorate(att)
		}
	}
	return halt.Snapshot{
		LastObservedNonce: k.lastObservedNonce,
		ValidatorNonces:   nonces,
		Contested:         pending > 1,
		Quorate:           quorate,
	}
}

func (k *Keeper) evaluateState(block BlockInfo) {
	prev := k.state
	k.state = k.detector.Evaluate(block.Time, k.snapshot())
	if k.state == halt.Halted {
		BridgeHalted.WithLabelValues(k.chainID).Set(1)
	} else {
		BridgeHalted.WithLabelValues(k.chainID).Set(0)
	}
	if prev != k.state {
		k.logger.WithFields(logrus.Fields{
			"height":              block.Height,
			"last_observed_nonce": k.lastObservedNonce,
			"state":               k.state,
		}).Warn("bridge state changed")
	}
}

// SetOutgoingBatch registers a batch waiting to be relayed to Ethereum.
func (k *Keeper) SetOutgoingBatch(batch OutgoingBatch) {
	k.mu.Lock()
	defer k.mu.Unlock()
	byNonce, ok := k.batches[batch.TokenContract]
	if !ok {
		byNonce = make(map[uint64]*OutgoingBatch)
		k.batches[batch.TokenContract] = byNonce
	}
	byNonce[batch.BatchNonce] = &batch
}

func (k *Keeper) sortedNonces() []uint64 {
	nonces := make([]uint64, 0, len(k.attestations))
	for n := range k.attestations {
		nonces = append(nonces, n)
	}
	sort.Slice(nonces, func(i, j int) bool { return nonces[i] < nonces[j] })
	return nonces
}
