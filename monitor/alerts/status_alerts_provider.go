package alerts

import (
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/gravity"
)

// StatusAlertsProvider derives alerts from the query surface of the destination chain.
type StatusAlertsProvider struct {
	client chain.QueryClient
}

func NewStatusAlertsProvider(client chain.QueryClient) *StatusAlertsProvider {
	return &StatusAlertsProvider{
		client: client,
	}
}

type LaggingValidator struct {
	Validator  common.Address `json:"validator"`
	EventNonce uint64         `json:"event_nonce,string"`
	Lag        uint64         `json:"_value,string"`
}

type ContestedNonce struct {
	EventNonce uint64      `json:"event_nonce,string"`
	ClaimHash  common.Hash `json:"claim_hash"`
	Votes      int         `json:"votes,string"`
	Power      uint64      `json:"_value,string"`
}

func (p *StatusAlertsProvider) FindLaggingValidators(ctx context.Context, _ *AlertJobParams) (interface{}, error) {
	status, err := p.client.BridgeStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get bridge status: %w", err)
	}
	maxNonce := status.MaxValidatorNonce()
	res := make([]LaggingValidator, 0, len(status.ValidatorNonces))
	for addr, nonce := range status.ValidatorNonces {
		if nonce < maxNonce {
			res = append(res, LaggingValidator{
				Validator:  addr,
				EventNonce: nonce,
				Lag:        maxNonce - nonce,
			})
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Validator.Hex() < res[j].Validator.Hex()
	})
	return res, nil
}

func (p *StatusAlertsProvider) FindContestedNonces(ctx context.Context, _ *AlertJobParams) (interface{}, error) {
	status, err := p.client.BridgeStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get bridge status: %w", err)
	}
	res := make([]ContestedNonce, 0, 2)
	if !status.Contested {
		return res, nil
	}
	observed := false
	nonce := status.LastObservedNonce + 1
	attestations, err := p.client.Attestations(ctx, gravity.AttestationFilter{
		Nonce:    nonce,
		Observed: &observed,
	})
	if err != nil {
		return nil, fmt.Errorf("can't get attestations for nonce %d: %w", nonce, err)
	}
	if len(attestations) < 2 {
		return res, nil
	}
	for _, att := range attestations {
		res = append(res, ContestedNonce{
			EventNonce: att.EventNonce,
			ClaimHash:  att.ClaimHash,
			Votes:      len(att.Votes),
			Power:      att.Power,
		})
	}
	return res, nil
}
