package local

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

var (
	ErrUnknownProposal = errors.New("unknown proposal")
	ErrVotingClosed    = errors.New("proposal is not in voting period")
	ErrNotAValidator   = errors.New("voter is not a validator")
	ErrInvalidProposal = errors.New("invalid proposal")
)

type VoteOption int

const (
	VoteYes VoteOption = iota + 1
	VoteNo
	VoteAbstain
	VoteNoWithVeto
)

type ProposalStatus string

const (
	ProposalVoting   ProposalStatus = "voting"
	ProposalPassed   ProposalStatus = "passed"
	ProposalRejected ProposalStatus = "rejected"
	ProposalFailed   ProposalStatus = "failed"
)

type ParamChange struct {
	Subspace string `json:"subspace"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

type Proposal struct {
	ID              uint64                        `json:"id"`
	Title           string                        `json:"title"`
	Proposer        common.Address                `json:"proposer"`
	Changes         []ParamChange                 `json:"changes"`
	Deposit         *big.Int                      `json:"deposit"`
	VotingEndHeight uint64                        `json:"voting_end_height"`
	Status          ProposalStatus                `json:"status"`
	Votes           map[common.Address]VoteOption `json:"votes"`
	FailReason      string                        `json:"fail_reason,omitempty"`
}

// ParamChangeHandler applies the parameter changes of a passed proposal.
type ParamChangeHandler interface {
	ApplyParamChange(proposalID uint64, key, value string) error
}

// Gov is a minimal power weighted governance module: a proposal passes when strictly more than
// half of the total power voted yes by the end of its voting period.
type Gov struct {
	mu           sync.RWMutex
	logger       logging.Logger
	power        map[common.Address]uint64
	totalPower   uint64
	votingPeriod uint64
	handler      ParamChangeHandler
	proposals    map[uint64]*Proposal
	nextID       uint64
}

func NewGov(logger logging.Logger, validators []gravity.Validator, votingPeriod uint64, handler ParamChangeHandler) *Gov {
	g := &Gov{
		logger:       logger,
		power:        make(map[common.Address]uint64, len(validators)),
		votingPeriod: votingPeriod,
		handler:      handler,
		proposals:    make(map[uint64]*Proposal),
		nextID:       1,
	}
	for _, v := range validators {
		g.power[v.Operator] = v.Power
		g.totalPower += v.Power
	}
	return g
}

func (g *Gov) submit(block gravity.BlockInfo, proposer common.Address, title string, changes []ParamChange, deposit *big.Int) (uint64, error) {
	if len(changes) == 0 {
		return 0, fmt.Errorf("%w: no parameter changes", ErrInvalidProposal)
	}
	for _, c := range changes {
		if c.Subspace != gravity.Subspace {
			return 0, fmt.Errorf("%w: unknown subspace %q", ErrInvalidProposal, c.Subspace)
		}
	}
	if deposit == nil || deposit.Sign() <= 0 {
		return 0, fmt.Errorf("%w: deposit must be positive", ErrInvalidProposal)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	p := &Proposal{
		ID:              g.nextID,
		Title:           title,
		Proposer:        proposer,
		Changes:         append([]ParamChange(nil), changes...),
		Deposit:         new(big.Int).Set(deposit),
		VotingEndHeight: block.Height + g.votingPeriod,
		Status:          ProposalVoting,
		Votes:           make(map[common.Address]VoteOption),
	}
	g.proposals[p.ID] = p
	g.nextID++
	g.logger.WithFields(logrus.Fields{
		"proposal_id":       p.ID,
		"title":             title,
		"voting_end_height": p.VotingEndHeight,
	}).Info("governance proposal submitted")
	return p.ID, nil
}

func (g *Gov) vote(voter common.Address, id uint64, option VoteOption) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.proposals[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownProposal, id)
	}
	if p.Status != ProposalVoting {
		return fmt.Errorf("%w: %d is %s", ErrVotingClosed, id, p.Status)
	}
	if _, ok = g.power[voter]; !ok {
		return fmt.Errorf("%w: %s", ErrNotAValidator, voter)
	}
	p.Votes[voter] = option
	return nil
}

// EndBlock tallies every proposal whose voting period is over. A proposal is only marked
// passed once all of its changes were applied.
func (g *Gov) EndBlock(block gravity.BlockInfo) {
	g.mu.Lock()
	ids := make([]uint64, 0, len(g.proposals))
	for id, p := range g.proposals {
		if p.Status == ProposalVoting && p.VotingEndHeight <= block.Height {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var accepted []*Proposal
	for _, id := range ids {
		p := g.proposals[id]
		var yes uint64
		for voter, option := range p.Votes {
			if option == VoteYes {
				yes += g.power[voter]
			}
		}
		logger := g.logger.WithFields(logrus.Fields{
			"proposal_id": id,
			"yes_power":   yes,
			"total_power": g.totalPower,
		})
		if yes*2 > g.totalPower {
			accepted = append(accepted, p)
			logger.Info("governance proposal accepted")
		} else {
			p.Status = ProposalRejected
			logger.Info("governance proposal rejected")
		}
	}
	g.mu.Unlock()

	for _, p := range accepted {
		status, reason := ProposalPassed, ""
		for _, c := range p.Changes {
			if err := g.handler.ApplyParamChange(p.ID, c.Key, c.Value); err != nil {
				g.logger.WithError(err).WithField("proposal_id", p.ID).Error("failed to apply parameter change")
				status, reason = ProposalFailed, err.Error()
				break
			}
		}
		g.mu.Lock()
		p.Status = status
		p.FailReason = reason
		g.mu.Unlock()
	}
}

// ProposalPassed reports whether the proposal passed and its changes were applied.
func (g *Gov) ProposalPassed(id uint64) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.proposals[id]
	return ok && p.Status == ProposalPassed
}

func (g *Gov) Proposal(id uint64) (*Proposal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.proposals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownProposal, id)
	}
	c := *p
	c.Votes = make(map[common.Address]VoteOption, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	return &c, nil
}

// ResetBridgeChanges builds the parameter changes that roll every validator back to nonce.
func ResetBridgeChanges(nonce uint64) []ParamChange {
	return []ParamChange{
		{Subspace: gravity.Subspace, Key: gravity.ParamResetBridgeState, Value: "true"},
		{Subspace: gravity.Subspace, Key: gravity.ParamResetBridgeNonce, Value: fmt.Sprintf("%q", strconv.FormatUint(nonce, 10))},
	}
}
