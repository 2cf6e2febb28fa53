// Package orchestrator observes the Gravity contract on the source chain and relays every
// observed event to the destination chain as a claim of one validator.
package orchestrator

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

type Orchestrator struct {
	logger       logging.Logger
	observer     *EventObserver
	submitter    *ClaimSubmitter
	pollInterval time.Duration
}

func NewOrchestrator(logger logging.Logger, observer *EventObserver, submitter *ClaimSubmitter, pollInterval time.Duration) *Orchestrator {
	return &Orchestrator{
		logger:       logger,
		observer:     observer,
		submitter:    submitter,
		pollInterval: pollInterval,
	}
}

// Run observes and submits until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		o.observer.Run(ctx)
		return nil
	})
	g.Go(func() error {
		o.runSubmitter(ctx)
		return nil
	})
	return g.Wait()
}

func (o *Orchestrator) runSubmitter(ctx context.Context) {
	o.logger.Info("starting claim submitter")
	for {
		accepted, err := o.submitter.Sync(ctx)
		if err != nil {
			o.logger.WithError(err).Error("failed to sync claims")
		} else if accepted > 0 {
			o.logger.WithFields(logrus.Fields{
				"accepted": accepted,
			}).Info("synced claims")
		}
		if !utils.ContextSleep(ctx, o.pollInterval) {
			return
		}
	}
}
