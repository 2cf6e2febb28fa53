package gravity

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/halt"
)

// ApplyReset rolls every validator back to the directive's target nonce and drops the unfinalized
// history at and above it. The directive must come from a passed governance proposal; applying the
// same proposal again is a no-op.
func (k *Keeper) ApplyReset(block BlockInfo, d ResetDirective) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.applyReset(block, d)
}

func (k *Keeper) applyReset(block BlockInfo, d ResetDirective) error {
	if k.gov == nil || !k.gov.ProposalPassed(d.ProposalID) {
		return fmt.Errorf("%w: proposal %d", ErrResetUnauthorized, d.ProposalID)
	}
	if !d.ResetState {
		return nil
	}
	if target, ok := k.appliedResets[d.ProposalID]; ok && target == d.TargetNonce {
		return nil
	}
	if d.TargetNonce == 0 {
		return fmt.Errorf("%w: target nonce is zero", ErrInvalidResetNonce)
	}
	if d.TargetNonce < k.lastObservedNonce {
		return fmt.Errorf("%w: target %d is below last observed nonce %d", ErrInvalidResetNonce, d.TargetNonce, k.lastObservedNonce)
	}

	discarded := 0
	for nonce, atts := range k.attestations {
		if nonce < d.TargetNonce {
			continue
		}
		kept := atts[:0]
		for _, att := range atts {
			if att.Observed {
				kept = append(kept, att)
			} else {
				discarded++
			}
		}
		if len(kept) == 0 {
			delete(k.attestations, nonce)
		} else {
			k.attestations[nonce] = kept
		}
	}
	for operator := range k.validatorNonces {
		k.validatorNonces[operator] = d.TargetNonce
		ValidatorEventNonce.WithLabelValues(k.chainID, operator.String()).Set(float64(d.TargetNonce))
	}
	k.detector.Reset(block.Time)
	k.state = halt.Normal
	BridgeHalted.WithLabelValues(k.chainID).Set(0)
	k.appliedResets[d.ProposalID] = d.TargetNonce

	k.logger.WithFields(logrus.Fields{
		"proposal_id":            d.ProposalID,
		"target_nonce":           d.TargetNonce,
		"last_observed_nonce":    k.lastObservedNonce,
		"discarded_attestations": discarded,
		"height":                 block.Height,
	}).Warn("bridge state has been reset by governance")

	k.tally(block)
	return nil
}
