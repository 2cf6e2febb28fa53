package orchestrator

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/gravity"
)

var claimTypes = map[entity.EventKind]gravity.ClaimType{
	entity.EventKindDeposit:       gravity.ClaimTypeSendToCosmos,
	entity.EventKindBatchExecuted: gravity.ClaimTypeBatchExecuted,
	entity.EventKindValsetUpdated: gravity.ClaimTypeValsetUpdated,
	entity.EventKindERC20Deployed: gravity.ClaimTypeERC20Deployed,
}

// ClaimFromEvent builds the claim orchestrator makes about an observed event.
func ClaimFromEvent(e *entity.BridgeEvent, orchestrator common.Address) (*gravity.Claim, error) {
	claimType, ok := claimTypes[e.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event kind %q", gravity.ErrInvalidClaim, e.Kind)
	}
	claim := &gravity.Claim{
		Type:         claimType,
		EventNonce:   e.EventNonce,
		BlockHeight:  uint64(e.BlockNumber),
		Orchestrator: orchestrator,
	}
	switch e.Kind {
	case entity.EventKindDeposit:
		claim.TokenContract = e.TokenContract
		claim.Amount = e.Amount.BigInt()
		claim.EthereumSender = e.Sender
		claim.CosmosReceiver = e.Receiver
	case entity.EventKindBatchExecuted:
		claim.TokenContract = e.TokenContract
		claim.BatchNonce = e.BatchNonce
	case entity.EventKindValsetUpdated:
		claim.ValsetNonce = e.ValsetNonce
	case entity.EventKindERC20Deployed:
		claim.TokenContract = e.TokenContract
		claim.CosmosDenom = e.CosmosDenom
		claim.Name = e.Name
		claim.Symbol = e.Symbol
		claim.Decimals = e.Decimals
	}
	return claim, nil
}
