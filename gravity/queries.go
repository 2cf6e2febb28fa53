package gravity

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/halt"
)

const maxAttestationsLimit = 1000

type BridgeStatus struct {
	halt.Snapshot
	State                   halt.State `json:"state"`
	LastObservedEthHeight   uint64     `json:"last_observed_eth_height"`
	LastObservedValsetNonce uint64     `json:"last_observed_valset_nonce"`
}

// LastEventNonceByValidator accepts either the orchestrator or the operator address.
func (k *Keeper) LastEventNonceByValidator(addr common.Address) (uint64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	operator, ok := k.orchestrators[addr]
	if !ok {
		if _, ok = k.validators[addr]; !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnauthorized, addr)
		}
		operator = addr
	}
	return k.validatorNonces[operator], nil
}

func (k *Keeper) LastObservedEventNonce() uint64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.lastObservedNonce
}

// Attestations returns matching attestations ordered by nonce. When more than the limit match,
// the most recent ones are returned.
func (k *Keeper) Attestations(filter AttestationFilter) []*Attestation {
	k.mu.RLock()
	defer k.mu.RUnlock()
	limit := filter.Limit
	if limit == 0 || limit > maxAttestationsLimit {
		limit = maxAttestationsLimit
	}
	var res []*Attestation
	for _, nonce := range k.sortedNonces() {
		if filter.Nonce != 0 && nonce != filter.Nonce {
			continue
		}
		for _, att := range k.attestations[nonce] {
			if filter.Type != "" && att.Claim.Type != filter.Type {
				continue
			}
			if filter.Observed != nil && att.Observed != *filter.Observed {
				continue
			}
			res = append(res, att.clone())
		}
	}
	if uint64(len(res)) > limit {
		res = res[uint64(len(res))-limit:]
	}
	return res
}

// DenomToERC20 resolves the ERC20 contract backing a destination chain denom.
func (k *Keeper) DenomToERC20(denom string) (*DenomToERC20, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if token, ok := k.denomToERC20[denom]; ok {
		return &DenomToERC20{ERC20: token, CosmosOriginated: true}, nil
	}
	if hex := strings.TrimPrefix(denom, DenomPrefix); hex != denom && common.IsHexAddress(hex) {
		return &DenomToERC20{ERC20: common.HexToAddress(hex), CosmosOriginated: false}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownDenom, denom)
}

// ERC20ToDenom returns the denom credited for deposits of token.
func (k *Keeper) ERC20ToDenom(token common.Address) (string, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.denomForToken(token)
}

func (k *Keeper) denomForToken(token common.Address) (string, bool) {
	if denom, ok := k.erc20ToDenom[token]; ok {
		return denom, true
	}
	return DenomPrefix + token.Hex(), false
}

func (k *Keeper) BridgeStatus() *BridgeStatus {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return &BridgeStatus{
		Snapshot:                k.snapshot(),
		State:                   k.state,
		LastObservedEthHeight:   k.lastObservedEthHeight,
		LastObservedValsetNonce: k.lastObservedValsetNonce,
	}
}

func (k *Keeper) Validators() []Validator {
	k.mu.RLock()
	defer k.mu.RUnlock()
	res := make([]Validator, 0, len(k.validators))
	for _, v := range k.validators {
		res = append(res, *v)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Operator.Hex() < res[j].Operator.Hex()
	})
	return res
}

func (k *Keeper) OutgoingBatches(token common.Address) []OutgoingBatch {
	k.mu.RLock()
	defer k.mu.RUnlock()
	res := make([]OutgoingBatch, 0, len(k.batches[token]))
	for _, b := range k.batches[token] {
		res = append(res, *b)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].BatchNonce < res[j].BatchNonce
	})
	return res
}
