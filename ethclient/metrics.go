package ethclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravity",
		Subsystem: "eth_rpc",
		Name:      "request_results_total",
	}, []string{"chain_id", "url", "method", "status"})

	RequestDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gravity",
		Subsystem: "eth_rpc",
		Name:      "request_duration_seconds",
		Buckets:   []float64{0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 20},
	}, []string{"chain_id", "url", "method"})
)

func requestStatus(err error) string {
	var rpcErr rpc.Error
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &rpcErr):
		return fmt.Sprintf("error-%d", rpcErr.ErrorCode())
	default:
		return "error"
	}
}

func ObserveError(chainID, url, method string, err error) {
	RequestResults.WithLabelValues(chainID, url, method, requestStatus(err)).Inc()
}

func ObserveDuration(chainID, url, method string) func() time.Duration {
	return prometheus.NewTimer(RequestDurations.WithLabelValues(chainID, url, method)).ObserveDuration
}
