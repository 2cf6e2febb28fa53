package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NewAlertLaggingValidator = func(chainID string) *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "alert",
			Subsystem:   "gravity",
			Name:        "lagging_validator",
			Help:        "Shows by how many event nonces a validator is behind the most advanced one.",
			ConstLabels: prometheus.Labels{"chain_id": chainID},
		}, []string{"validator", "event_nonce"})
	}
	NewAlertContestedNonce = func(chainID string) *prometheus.GaugeVec {
		return promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "alert",
			Subsystem:   "gravity",
			Name:        "contested_nonce",
			Help:        "Shows the voting power behind each of the conflicting claims for the next event nonce.",
			ConstLabels: prometheus.Labels{"chain_id": chainID},
		}, []string{"event_nonce", "claim_hash", "votes"})
	}
)
