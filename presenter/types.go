package presenter

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type LastEventNonceResult struct {
	Address    common.Address `json:"address"`
	EventNonce uint64         `json:"event_nonce"`
}

type BridgeStateSampleInfo struct {
	State             string    `json:"state"`
	LastObservedNonce uint64    `json:"last_observed_nonce"`
	MaxValidatorNonce uint64    `json:"max_validator_nonce"`
	MinValidatorNonce uint64    `json:"min_validator_nonce"`
	Contested         bool      `json:"contested"`
	SampledAt         time.Time `json:"sampled_at"`
}

type BridgeHistoryResult struct {
	ChainID string                   `json:"chain_id"`
	Samples []*BridgeStateSampleInfo `json:"samples"`
}
