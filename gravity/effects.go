package gravity

import (
	"fmt"
)

func (k *Keeper) applyClaim(c *Claim) error {
	switch c.Type {
	case ClaimTypeSendToCosmos:
		denom, _ := k.denomForToken(c.TokenContract)
		if err := k.bank.Mint(c.CosmosReceiver, denom, c.Amount); err != nil {
			return fmt.Errorf("can't credit %s%s to %s: %w", c.Amount, denom, c.CosmosReceiver, err)
		}
	case ClaimTypeERC20Deployed:
		if !k.nativeDenoms[c.CosmosDenom] {
			return fmt.Errorf("%w: %s", ErrUnknownDenom, c.CosmosDenom)
		}
		if existing, ok := k.denomToERC20[c.CosmosDenom]; ok {
			return fmt.Errorf("denom %s is already represented by %s", c.CosmosDenom, existing)
		}
		if existing, ok := k.erc20ToDenom[c.TokenContract]; ok {
			return fmt.Errorf("token %s already represents %s", c.TokenContract, existing)
		}
		k.denomToERC20[c.CosmosDenom] = c.TokenContract
		k.erc20ToDenom[c.TokenContract] = c.CosmosDenom
	case ClaimTypeBatchExecuted:
		byNonce := k.batches[c.TokenContract]
		if _, ok := byNonce[c.BatchNonce]; !ok {
			return fmt.Errorf("unknown batch %d for token %s", c.BatchNonce, c.TokenContract)
		}
		// executing a batch invalidates every earlier batch of the same token
		for nonce := range byNonce {
			if nonce <= c.BatchNonce {
				delete(byNonce, nonce)
			}
		}
	case ClaimTypeValsetUpdated:
		if c.ValsetNonce > k.lastObservedValsetNonce {
			k.lastObservedValsetNonce = c.ValsetNonce
		}
	default:
		return fmt.Errorf("%w: unknown claim type %q", ErrInvalidClaim, c.Type)
	}
	return nil
}
