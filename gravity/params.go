package gravity

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Subspace is the governance parameter subspace owned by the bridge module.
const Subspace = "gravity"

const (
	ParamBridgeActive     = "BridgeActive"
	ParamResetBridgeState = "ResetBridgeState"
	ParamResetBridgeNonce = "ResetBridgeNonce"
)

// ApplyParamChange is called by governance when a passed proposal changes a bridge parameter.
// Values are JSON encoded; nonces are quoted decimal strings.
func (k *Keeper) ApplyParamChange(proposalID uint64, key, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	switch key {
	case ParamBridgeActive:
		var v bool
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("can't parse %s value %q: %w", key, value, err)
		}
		k.params.BridgeActive = v
	case ParamResetBridgeState:
		var v bool
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return fmt.Errorf("can't parse %s value %q: %w", key, value, err)
		}
		k.params.ResetBridgeState = v
		k.resetProposal = proposalID
	case ParamResetBridgeNonce:
		var s string
		if err := json.Unmarshal([]byte(value), &s); err != nil {
			return fmt.Errorf("can't parse %s value %q: %w", key, value, err)
		}
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return fmt.Errorf("can't parse %s value %q: %w", key, value, err)
		}
		k.params.ResetBridgeNonce = v
		k.resetProposal = proposalID
	default:
		return fmt.Errorf("unknown %s parameter %q", Subspace, key)
	}
	k.logger.WithField("proposal_id", proposalID).WithField("key", key).WithField("value", value).Info("bridge parameter changed")
	return nil
}

func (k *Keeper) Params() Params {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.params
}
