package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/logging"
)

type AlertJobParams struct {
	ChainID string
}

// AlertMetricValues holds the labels of a single alert, the gauge value is kept under ValueLabelTag.
type AlertMetricValues map[string]string

const ValueLabelTag = "_value"

func (v AlertMetricValues) Labels() prometheus.Labels {
	labels := make(prometheus.Labels, len(v))
	for k, val := range v {
		if k != ValueLabelTag {
			labels[k] = val
		}
	}
	return labels
}

func (v AlertMetricValues) Value() float64 {
	val, ok := v[ValueLabelTag]
	if !ok {
		return 0
	}
	res, _ := strconv.ParseFloat(val, 64)
	return res
}

func ConvertToAlertMetricValues(v interface{}) ([]AlertMetricValues, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("can't marshal alert values to json: %w", err)
	}
	var res []AlertMetricValues
	err = json.Unmarshal(raw, &res)
	if err != nil {
		return nil, fmt.Errorf("can't unmarshal alert values to []AlertMetricValues: %w", err)
	}
	return res, nil
}

type Job struct {
	logger   logging.Logger
	Metric   *prometheus.GaugeVec
	Interval time.Duration
	Timeout  time.Duration
	Func     func(ctx context.Context, params *AlertJobParams) (interface{}, error)
	Params   *AlertJobParams
}

// Execute runs the job once and replaces the exported alerts with the found ones.
// The metric keeps its previous alerts when the job fails.
func (j *Job) Execute(ctx context.Context) ([]AlertMetricValues, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, j.Timeout)
	defer cancel()
	alerts, err := j.Func(timeoutCtx, j.Params)
	if err != nil {
		return nil, err
	}
	values, err := ConvertToAlertMetricValues(alerts)
	if err != nil {
		return nil, err
	}
	j.Metric.Reset()
	for _, v := range values {
		j.Metric.With(v.Labels()).Set(v.Value())
	}
	return values, nil
}

func (j *Job) Start(ctx context.Context, isSynced func() bool) {
	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()
	for {
		if isSynced() {
			start := time.Now()
			values, err := j.Execute(ctx)
			switch {
			case err != nil:
				j.logger.WithError(err).Error("failed to process alert job")
			case len(values) > 0:
				j.logger.WithFields(logrus.Fields{
					"count":    len(values),
					"duration": time.Since(start),
				}).Warn("found some possible alerts")
			default:
				j.logger.WithField("duration", time.Since(start)).Info("no alerts has been found")
			}
		} else {
			j.logger.Warn("bridge monitor is not synchronized, skipping alert job iteration")
		}

		select {
		case <-ticker.C:
			continue
		case <-ctx.Done():
			return
		}
	}
}
