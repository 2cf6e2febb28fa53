package gravity

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ValidatorEventNonce = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "keeper",
		Name:      "validator_event_nonce",
		Help:      "Last event nonce accepted from the particular validator.",
	}, []string{"chain_id", "validator"})
	LastObservedEventNonce = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "keeper",
		Name:      "last_observed_event_nonce",
		Help:      "Nonce of the last finalized attestation.",
	}, []string{"chain_id"})
	BridgeHalted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "keeper",
		Name:      "bridge_halted",
		Help:      "Shows 1 while attestation finalization is halted.",
	}, []string{"chain_id"})
	ClaimResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravity",
		Subsystem: "keeper",
		Name:      "claim_results_total",
		Help:      "Processed claims by result.",
	}, []string{"chain_id", "type", "result"})
)

func claimResult(err error) string {
	switch CodeFromError(err) {
	case CodeOK:
		return "accepted"
	case CodeNonceGap:
		return "nonce_gap"
	case CodeUnauthorized:
		return "unauthorized"
	case CodeInvalidSignature:
		return "invalid_signature"
	case CodeInvalidClaim:
		return "invalid"
	default:
		return "error"
	}
}
