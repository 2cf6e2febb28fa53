package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SampledBridgeHalted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "monitor",
		Name:      "bridge_halted",
		Help:      "Shows 1 if the bridge is halted. The source label tells apart the verdict reported by the chain and the one of the monitor.",
	}, []string{"chain_id", "source"})
	SampledLastObservedNonce = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "monitor",
		Name:      "last_observed_event_nonce",
		Help:      "Shows the last observed event nonce reported by the destination chain.",
	}, []string{"chain_id"})
	SampledValidatorNonce = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "monitor",
		Name:      "validator_event_nonce",
		Help:      "Shows the last event nonce accepted from the particular validator.",
	}, []string{"chain_id", "validator"})
	ObservedNonceStall = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "monitor",
		Name:      "observed_nonce_stall_seconds",
		Help:      "Shows for how long the last observed event nonce has not moved.",
	}, []string{"chain_id"})
	SampleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravity",
		Subsystem: "monitor",
		Name:      "sample_errors_total",
		Help:      "Counts failed bridge status samples.",
	}, []string{"chain_id"})
)
