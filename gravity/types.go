package gravity

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DenomPrefix is prepended to the ERC20 address to name vouchers of Ethereum originated tokens.
const DenomPrefix = "gravity"

type ClaimType string

const (
	ClaimTypeSendToCosmos  ClaimType = "send_to_cosmos"
	ClaimTypeBatchExecuted ClaimType = "batch_executed"
	ClaimTypeValsetUpdated ClaimType = "valset_updated"
	ClaimTypeERC20Deployed ClaimType = "erc20_deployed"
)

// Claim is one orchestrator's assertion that an event with the given nonce happened on Ethereum.
type Claim struct {
	Type           ClaimType      `json:"type"`
	EventNonce     uint64         `json:"event_nonce"`
	BlockHeight    uint64         `json:"block_height"`
	TokenContract  common.Address `json:"token_contract"`
	Amount         *big.Int       `json:"amount,omitempty"`
	EthereumSender common.Address `json:"ethereum_sender"`
	CosmosReceiver string         `json:"cosmos_receiver,omitempty"`
	BatchNonce     uint64         `json:"batch_nonce,omitempty"`
	ValsetNonce    uint64         `json:"valset_nonce,omitempty"`
	CosmosDenom    string         `json:"cosmos_denom,omitempty"`
	Name           string         `json:"name,omitempty"`
	Symbol         string         `json:"symbol,omitempty"`
	Decimals       uint8          `json:"decimals,omitempty"`
	Orchestrator   common.Address `json:"orchestrator"`
}

func (c *Claim) ValidateBasic() error {
	if c.EventNonce == 0 {
		return fmt.Errorf("%w: event nonce is zero", ErrInvalidClaim)
	}
	if c.Orchestrator == (common.Address{}) {
		return fmt.Errorf("%w: empty orchestrator", ErrInvalidClaim)
	}
	switch c.Type {
	case ClaimTypeSendToCosmos:
		if c.Amount == nil || c.Amount.Sign() <= 0 {
			return fmt.Errorf("%w: deposit amount must be positive", ErrInvalidClaim)
		}
		if c.CosmosReceiver == "" {
			return fmt.Errorf("%w: empty deposit receiver", ErrInvalidClaim)
		}
	case ClaimTypeBatchExecuted:
		if c.BatchNonce == 0 {
			return fmt.Errorf("%w: batch nonce is zero", ErrInvalidClaim)
		}
	case ClaimTypeERC20Deployed:
		if c.CosmosDenom == "" {
			return fmt.Errorf("%w: empty cosmos denom", ErrInvalidClaim)
		}
	case ClaimTypeValsetUpdated:
	default:
		return fmt.Errorf("%w: unknown claim type %q", ErrInvalidClaim, c.Type)
	}
	return nil
}

// ClaimHash identifies the claim content. The submitting orchestrator is not part of it,
// so identical observations from different validators share one attestation.
func (c *Claim) ClaimHash() common.Hash {
	content := *c
	content.Orchestrator = common.Address{}
	raw, err := json.Marshal(&content)
	if err != nil {
		panic(fmt.Errorf("can't marshal claim: %w", err))
	}
	return crypto.Keccak256Hash([]byte(c.Type), raw)
}

// SignBytes returns the payload an orchestrator signs to authenticate a claim on chainID.
func (c *Claim) SignBytes(chainID string) []byte {
	raw, err := json.Marshal(c)
	if err != nil {
		panic(fmt.Errorf("can't marshal claim: %w", err))
	}
	return append([]byte(chainID+":"), raw...)
}

// MsgClaim is the transaction an orchestrator submits to the destination chain.
type MsgClaim struct {
	Claim     *Claim `json:"claim"`
	Signature []byte `json:"signature"`
}

type Validator struct {
	Operator     common.Address `json:"operator"`
	Orchestrator common.Address `json:"orchestrator"`
	Power        uint64         `json:"power"`
}

type Attestation struct {
	EventNonce uint64           `json:"event_nonce"`
	ClaimHash  common.Hash      `json:"claim_hash"`
	Claim      Claim            `json:"claim"`
	Votes      []common.Address `json:"votes"`
	Power      uint64           `json:"power"`
	Observed   bool             `json:"observed"`
	Height     uint64           `json:"height"`
}

func (a *Attestation) clone() *Attestation {
	c := *a
	c.Votes = append([]common.Address(nil), a.Votes...)
	c.Claim.Amount = cloneInt(a.Claim.Amount)
	return &c
}

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return nil
	}
	return new(big.Int).Set(x)
}

type OutgoingBatch struct {
	TokenContract common.Address `json:"token_contract"`
	BatchNonce    uint64         `json:"batch_nonce"`
}

// BlockInfo carries the destination chain block a message is processed in.
type BlockInfo struct {
	Height uint64
	Time   time.Time
}

type Params struct {
	BridgeActive      bool          `json:"bridge_active"`
	QuorumNumerator   uint64        `json:"quorum_numerator"`
	QuorumDenominator uint64        `json:"quorum_denominator"`
	StallWindow       time.Duration `json:"stall_window"`
	EventsToKeep      uint64        `json:"events_to_keep"`
	ResetBridgeState  bool          `json:"reset_bridge_state"`
	ResetBridgeNonce  uint64        `json:"reset_bridge_nonce"`
}

func DefaultParams() Params {
	return Params{
		BridgeActive:      true,
		QuorumNumerator:   2,
		QuorumDenominator: 3,
		StallWindow:       2 * time.Minute,
		EventsToKeep:      1000,
	}
}

// ResetDirective is the governance instruction to roll every validator back to TargetNonce.
type ResetDirective struct {
	ProposalID  uint64 `json:"proposal_id"`
	TargetNonce uint64 `json:"target_nonce"`
	ResetState  bool   `json:"reset_state"`
}

// DenomToERC20 is the answer to a denom lookup.
type DenomToERC20 struct {
	ERC20            common.Address `json:"erc20"`
	CosmosOriginated bool           `json:"cosmos_originated"`
}

// AttestationFilter selects attestations; zero fields match everything.
type AttestationFilter struct {
	Nonce    uint64    `json:"nonce,omitempty"`
	Type     ClaimType `json:"type,omitempty"`
	Observed *bool     `json:"observed,omitempty"`
	Limit    uint64    `json:"limit,omitempty"`
}
