package local

import (
	"crypto/ecdsa"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

// NewFromConfig builds a node for the destination chain described by cfg. It also returns
// the orchestrator keys of the configured validators, in SortedValidators order.
func NewFromConfig(logger logging.Logger, cfg *config.Config) (*Node, []*ecdsa.PrivateKey, error) {
	if cfg.Destination == nil {
		return nil, nil, fmt.Errorf("destination chain is not configured: %w", config.ErrInvalidConfig)
	}
	d := cfg.Destination
	params := gravity.DefaultParams()
	params.QuorumNumerator = d.Quorum.Numerator
	params.QuorumDenominator = d.Quorum.Denominator
	params.StallWindow = d.StallWindow
	params.EventsToKeep = d.EventsToKeep

	sorted := cfg.SortedValidators()
	validators := make([]gravity.Validator, 0, len(sorted))
	keys := make([]*ecdsa.PrivateKey, 0, len(sorted))
	for _, v := range sorted {
		key, err := v.PrivateKey()
		if err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		validators = append(validators, gravity.Validator{
			Operator:     v.Operator,
			Orchestrator: crypto.PubkeyToAddress(key.PublicKey),
			Power:        v.Power,
		})
	}

	bank := NewBank()
	keeper, err := gravity.NewKeeper(logger.WithField("module", "gravity"), d.ChainID, params, validators, bank, d.NativeDenoms)
	if err != nil {
		return nil, nil, fmt.Errorf("can't create gravity keeper: %w", err)
	}
	blockTime := d.BlockTime
	if blockTime == 0 {
		blockTime = time.Second
	}
	node := NewNode(logger.WithField("chain_id", d.ChainID), Config{
		BlockTime:          blockTime,
		VotingPeriodBlocks: d.VotingPeriodBlocks,
	}, keeper, bank)
	return node, keys, nil
}
