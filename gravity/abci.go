package gravity

import (
	"github.com/sirupsen/logrus"
)

// EndBlocker runs after every destination chain block: it applies a pending governance reset,
// re-evaluates the bridge state, finalizes what became quorate and prunes old history.
func (k *Keeper) EndBlocker(block BlockInfo) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.unhaltBridge(block)
	k.evaluateState(block)
	k.tally(block)
	k.pruneAttestations()
}

func (k *Keeper) unhaltBridge(block BlockInfo) {
	if !k.params.ResetBridgeState {
		return
	}
	d := ResetDirective{
		ProposalID:  k.resetProposal,
		TargetNonce: k.params.ResetBridgeNonce,
		ResetState:  true,
	}
	if err := k.applyReset(block, d); err != nil {
		k.logger.WithError(err).WithFields(logrus.Fields{
			"proposal_id":  d.ProposalID,
			"target_nonce": d.TargetNonce,
		}).Error("failed to reset bridge state")
	}
	defaults := DefaultParams()
	k.params.ResetBridgeState = defaults.ResetBridgeState
	k.params.ResetBridgeNonce = defaults.ResetBridgeNonce
	k.resetProposal = 0
}

// pruneAttestations drops attestations more than EventsToKeep nonces behind the last observed one.
func (k *Keeper) pruneAttestations() {
	keep := k.params.EventsToKeep
	if keep == 0 || k.lastObservedNonce <= keep {
		return
	}
	cutoff := k.lastObservedNonce - keep
	for _, nonce := range k.sortedNonces() {
		if nonce >= cutoff {
			return
		}
		delete(k.attestations, nonce)
	}
}
