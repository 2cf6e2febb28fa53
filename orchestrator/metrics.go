package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatestHeadBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "observer",
		Name:      "latest_head_block",
		Help:      "Shows the latest confirmed head block of the source chain seen by the orchestrator.",
	}, []string{"chain_id", "address", "orchestrator"})
	LatestFetchedBlock = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "observer",
		Name:      "latest_fetched_block",
		Help:      "Shows the latest block whose bridge events are saved to the DB.",
	}, []string{"chain_id", "address", "orchestrator"})
	SyncedObserver = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "observer",
		Name:      "synced",
		Help:      "Shows 1 if the observer is considered as synced up to chain head.",
	}, []string{"chain_id", "address", "orchestrator"})

	SubmittedClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravity",
		Subsystem: "submitter",
		Name:      "claims_total",
		Help:      "Counts submitted claims by their final status.",
	}, []string{"orchestrator", "status"})
	SubmitterEventNonce = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravity",
		Subsystem: "submitter",
		Name:      "event_nonce",
		Help:      "Shows the last event nonce accepted from the orchestrator.",
	}, []string{"orchestrator"})
)
