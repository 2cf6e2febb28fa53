package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/bridgekit/gravity-orchestrator/chain"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/logging"
)

type AlertManager struct {
	logger logging.Logger
	jobs   map[string]*Job
}

func NewAlertManager(logger logging.Logger, client chain.QueryClient, chainID string, cfg map[string]*config.AlertConfig) (*AlertManager, error) {
	provider := NewStatusAlertsProvider(client)
	jobs := make(map[string]*Job, len(cfg))

	for name, alertCfg := range cfg {
		switch name {
		case "lagging_validator":
			jobs[name] = &Job{
				Interval: time.Minute,
				Timeout:  time.Second * 10,
				Func:     provider.FindLaggingValidators,
				Metric:   NewAlertLaggingValidator(chainID),
			}
		case "contested_nonce":
			jobs[name] = &Job{
				Interval: time.Minute,
				Timeout:  time.Second * 10,
				Func:     provider.FindContestedNonces,
				Metric:   NewAlertContestedNonce(chainID),
			}
		default:
			return nil, fmt.Errorf("unknown alert type %q", name)
		}
		jobs[name].logger = logger.WithField("alert_job", name)
		jobs[name].Params = &AlertJobParams{
			ChainID: chainID,
		}
		if alertCfg != nil {
			if alertCfg.Interval > 0 {
				jobs[name].Interval = alertCfg.Interval
			}
			if alertCfg.Timeout > 0 {
				jobs[name].Timeout = alertCfg.Timeout
			}
		}
	}

	return &AlertManager{
		logger: logger,
		jobs:   jobs,
	}, nil
}

func (m *AlertManager) Job(name string) *Job {
	return m.jobs[name]
}

func (m *AlertManager) Start(ctx context.Context, isSynced func() bool) {
	t := time.NewTicker(time.Second)
	for !isSynced() {
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
			m.logger.Debug("waiting for the first bridge status sample")
		}
	}
	t.Stop()
	m.logger.Info("bridge status is sampled, starting alert manager jobs")

	for _, job := range m.jobs {
		go job.Start(ctx, isSynced)
	}
}
