// Package monitor watches the destination chain from the outside and keeps its own verdict
// on whether the bridge is halted.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/gravity"
	"github.com/bridgekit/gravity-orchestrator/halt"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/monitor/alerts"
	"github.com/bridgekit/gravity-orchestrator/repository"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

// Report is the outcome of a single bridge status sample.
type Report struct {
	Status     *gravity.BridgeStatus
	State      halt.State
	Lagging    []common.Address
	StalledFor time.Duration
	SampledAt  time.Time
}

type HaltMonitor struct {
	logger       logging.Logger
	client       chain.QueryClient
	repo         *repository.Repo
	cfg          *config.MonitorConfig
	chainID      string
	clock        func() time.Time
	alertManager *alerts.AlertManager

	mu       sync.RWMutex
	detector *halt.Detector
	latest   *Report
}

func NewHaltMonitor(logger logging.Logger, client chain.QueryClient, repo *repository.Repo, chainID string, cfg *config.MonitorConfig) (*HaltMonitor, error) {
	alertManager, err := alerts.NewAlertManager(logger, client, chainID, cfg.Alerts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize alert manager: %w", err)
	}
	return &HaltMonitor{
		logger:       logger,
		client:       client,
		repo:         repo,
		cfg:          cfg,
		chainID:      chainID,
		clock:        time.Now,
		alertManager: alertManager,
		detector:     halt.NewDetector(cfg.StallWindow),
	}, nil
}

// WithClock replaces the time source used to age the sampled nonces.
func (m *HaltMonitor) WithClock(clock func() time.Time) *HaltMonitor {
	m.clock = clock
	return m
}

func (m *HaltMonitor) AlertManager() *alerts.AlertManager {
	return m.alertManager
}

// IsSynced reports whether at least one sample succeeded.
func (m *HaltMonitor) IsSynced() bool {
	return m.Latest() != nil
}

func (m *HaltMonitor) Latest() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Sample queries the bridge status once, evaluates it and records the result.
func (m *HaltMonitor) Sample(ctx context.Context) (*Report, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	status, err := m.client.BridgeStatus(timeoutCtx)
	if err != nil {
		SampleErrors.WithLabelValues(m.chainID).Inc()
		return nil, fmt.Errorf("can't get bridge status: %w", err)
	}

	now := m.clock()
	m.mu.Lock()
	prev := m.latest
	report := &Report{
		Status:     status,
		State:      m.detector.Evaluate(now, status.Snapshot),
		Lagging:    m.detector.LaggingValidators(now, status.Snapshot),
		StalledFor: m.detector.ObservedStallDuration(now),
		SampledAt:  now,
	}
	m.latest = report
	m.mu.Unlock()

	m.logTransition(prev, report)
	m.recordMetrics(report)

	err = m.repo.BridgeStateSamples.Insert(ctx, &entity.BridgeStateSample{
		ChainID:           m.chainID,
		State:             report.State.String(),
		LastObservedNonce: status.LastObservedNonce,
		MaxValidatorNonce: status.MaxValidatorNonce(),
		MinValidatorNonce: status.MinValidatorNonce(),
		Contested:         status.Contested,
		SampledAt:         now,
	})
	if err != nil {
		return report, fmt.Errorf("can't save bridge state sample: %w", err)
	}
	return report, nil
}

func (m *HaltMonitor) logTransition(prev, report *Report) {
	logger := m.logger.WithFields(logrus.Fields{
		"last_observed_nonce": report.Status.LastObservedNonce,
		"max_validator_nonce": report.Status.MaxValidatorNonce(),
		"chain_state":         report.Status.State,
		"monitor_state":       report.State,
	})
	if prev == nil || prev.State != report.State {
		if report.State == halt.Halted {
			logger.WithFields(logrus.Fields{
				"lagging":     report.Lagging,
				"contested":   report.Status.Contested,
				"stalled_for": report.StalledFor,
			}).Warn("bridge is halted")
		} else {
			logger.Info("bridge is operating normally")
		}
	}
	if report.State != report.Status.State {
		logger.Warn("bridge state reported by the chain differs from the monitor verdict")
	}
}

func (m *HaltMonitor) recordMetrics(report *Report) {
	SampledBridgeHalted.WithLabelValues(m.chainID, "chain").Set(haltedValue(report.Status.State))
	SampledBridgeHalted.WithLabelValues(m.chainID, "monitor").Set(haltedValue(report.State))
	SampledLastObservedNonce.WithLabelValues(m.chainID).Set(float64(report.Status.LastObservedNonce))
	ObservedNonceStall.WithLabelValues(m.chainID).Set(report.StalledFor.Seconds())

	for addr, nonce := range report.Status.ValidatorNonces {
		SampledValidatorNonce.WithLabelValues(m.chainID, addr.String()).Set(float64(nonce))
	}
}

func haltedValue(s halt.State) float64 {
	if s == halt.Halted {
		return 1
	}
	return 0
}

// Start samples the bridge status every interval until ctx is done.
func (m *HaltMonitor) Start(ctx context.Context) {
	m.logger.Info("starting bridge halt monitor")
	go m.alertManager.Start(ctx, m.IsSynced)
	for {
		if _, err := m.Sample(ctx); err != nil {
			m.logger.WithError(err).Error("failed to sample bridge status")
		}
		if !utils.ContextSleep(ctx, m.cfg.Interval) {
			return
		}
	}
}
