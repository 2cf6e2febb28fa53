// Package local runs the destination chain in process: a block producer over the gravity keeper,
// a governance module able to reset the bridge and an in-memory bank.
package local

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/retry"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

const minReceiptPollInterval = 10 * time.Millisecond

type Config struct {
	BlockTime          time.Duration
	VotingPeriodBlocks uint64
	// Clock returns the time of the next block. Defaults to time.Now.
	Clock func() time.Time
}

type pendingTx struct {
	hash    common.Hash
	deliver func(block gravity.BlockInfo) error
}

type Node struct {
	logger logging.Logger
	cfg    Config
	keeper *gravity.Keeper
	gov    *Gov
	bank   *Bank

	produceMu sync.Mutex

	mu       sync.RWMutex
	height   uint64
	lastTime time.Time
	seq      uint64
	mempool  []*pendingTx
	receipts map[common.Hash]*chain.Receipt
}

var _ chain.Client = (*Node)(nil)

func NewNode(logger logging.Logger, cfg Config, keeper *gravity.Keeper, bank *Bank) *Node {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	n := &Node{
		logger:   logger,
		cfg:      cfg,
		keeper:   keeper,
		bank:     bank,
		receipts: make(map[common.Hash]*chain.Receipt),
	}
	n.gov = NewGov(logger.WithField("module", "gov"), keeper.Validators(), cfg.VotingPeriodBlocks, keeper)
	keeper.SetGovernanceAuthority(n.gov)
	return n
}

// SimulatedClock returns a block clock starting at start and moving by step on every block.
func SimulatedClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func (n *Node) Keeper() *gravity.Keeper {
	return n.keeper
}

func (n *Node) Gov() *Gov {
	return n.gov
}

func (n *Node) Bank() *Bank {
	return n.bank
}

func (n *Node) ChainID() string {
	return n.keeper.ChainID()
}

func (n *Node) Height() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.height
}

// Start produces a block every BlockTime until ctx is done.
func (n *Node) Start(ctx context.Context) {
	n.logger.WithField("block_time", n.cfg.BlockTime).Info("starting block production")
	for {
		if !utils.ContextSleep(ctx, n.cfg.BlockTime) {
			n.logger.Info("stopping block production")
			return
		}
		n.ProduceBlock()
	}
}

// ProduceBlock includes every pending transaction in submission order and runs the end blockers.
func (n *Node) ProduceBlock() gravity.BlockInfo {
	n.produceMu.Lock()
	defer n.produceMu.Unlock()

	n.mu.Lock()
	n.height++
	block := gravity.BlockInfo{Height: n.height, Time: n.cfg.Clock()}
	if block.Time.Before(n.lastTime) {
		block.Time = n.lastTime
	}
	n.lastTime = block.Time
	txs := n.mempool
	n.mempool = nil
	n.mu.Unlock()

	receipts := make([]*chain.Receipt, 0, len(txs))
	for _, tx := range txs {
		receipt := &chain.Receipt{TxHash: tx.hash, Height: block.Height}
		if err := tx.deliver(block); err != nil {
			receipt.Code = gravity.CodeFromError(err)
			receipt.Log = err.Error()
		}
		receipts = append(receipts, receipt)
	}

	n.gov.EndBlock(block)
	n.keeper.EndBlocker(block)

	n.mu.Lock()
	for _, r := range receipts {
		n.receipts[r.TxHash] = r
	}
	n.mu.Unlock()

	if len(txs) > 0 {
		n.logger.WithFields(logrus.Fields{
			"height": block.Height,
			"txs":    len(txs),
		}).Debug("produced block")
	}
	return block
}

func (n *Node) enqueue(payload []byte, deliver func(block gravity.BlockInfo) error) common.Hash {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], n.seq)
	hash := crypto.Keccak256Hash(payload, seq[:])
	n.mempool = append(n.mempool, &pendingTx{hash: hash, deliver: deliver})
	return hash
}

func (n *Node) SubmitTransaction(ctx context.Context, msg *gravity.MsgClaim) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return common.Hash{}, fmt.Errorf("can't encode claim message: %w", err)
	}
	return n.enqueue(payload, func(block gravity.BlockInfo) error {
		return n.keeper.HandleClaimMsg(block, msg)
	}), nil
}

func (n *Node) receipt(hash common.Hash) *chain.Receipt {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if r, ok := n.receipts[hash]; ok {
		c := *r
		return &c
	}
	return nil
}

func (n *Node) WaitForTx(ctx context.Context, hash common.Hash, timeout time.Duration) (*chain.Receipt, error) {
	interval := n.cfg.BlockTime / 2
	if interval < minReceiptPollInterval {
		interval = minReceiptPollInterval
	}
	var receipt *chain.Receipt
	err := retry.Await(ctx, retry.Fixed(interval, timeout), func(ctx context.Context) (bool, error) {
		receipt = n.receipt(hash)
		return receipt != nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", chain.ErrTxNotFound, hash, err)
	}
	return receipt, nil
}

func (n *Node) waitForResult(ctx context.Context, hash common.Hash, timeout time.Duration) error {
	receipt, err := n.WaitForTx(ctx, hash, timeout)
	if err != nil {
		return err
	}
	return receipt.Err()
}

// SubmitParameterChangeProposal submits a governance proposal and waits for its inclusion.
func (n *Node) SubmitParameterChangeProposal(ctx context.Context, proposer common.Address, title string, changes []ParamChange, deposit *big.Int, timeout time.Duration) (uint64, error) {
	payload, err := json.Marshal(changes)
	if err != nil {
		return 0, fmt.Errorf("can't encode parameter changes: %w", err)
	}
	var id uint64
	hash := n.enqueue(payload, func(block gravity.BlockInfo) error {
		var err error
		id, err = n.gov.submit(block, proposer, title, changes, deposit)
		return err
	})
	if err = n.waitForResult(ctx, hash, timeout); err != nil {
		return 0, fmt.Errorf("can't submit proposal %q: %w", title, err)
	}
	return id, nil
}

func (n *Node) VoteOnProposal(ctx context.Context, voter common.Address, id uint64, option VoteOption, timeout time.Duration) error {
	payload := []byte(fmt.Sprintf("vote:%s:%d:%d", voter, id, option))
	hash := n.enqueue(payload, func(gravity.BlockInfo) error {
		return n.gov.vote(voter, id, option)
	})
	if err := n.waitForResult(ctx, hash, timeout); err != nil {
		return fmt.Errorf("can't vote on proposal %d: %w", id, err)
	}
	return nil
}

func (n *Node) LastEventNonceForValidator(_ context.Context, addr common.Address) (uint64, error) {
	return n.keeper.LastEventNonceByValidator(addr)
}

func (n *Node) Attestations(_ context.Context, filter gravity.AttestationFilter) ([]*gravity.Attestation, error) {
	return n.keeper.Attestations(filter), nil
}

func (n *Node) DenomToERC20(_ context.Context, denom string) (*gravity.DenomToERC20, error) {
	return n.keeper.DenomToERC20(denom)
}

func (n *Node) BridgeStatus(_ context.Context) (*gravity.BridgeStatus, error) {
	return n.keeper.BridgeStatus(), nil
}
