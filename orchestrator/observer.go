package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/contract"
	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/ethclient"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/repository"
	"github.com/bridgekit/gravity-orchestrator/utils"
)

const defaultSyncedThreshold = 10

// EventObserver scans the Gravity contract logs and stores the decoded bridge events.
// Its cursor is persisted per orchestrator, so a restarted observer resumes where it stopped.
type EventObserver struct {
	logger             logging.Logger
	cfg                *config.BridgeConfig
	client             ethclient.Client
	contract           *contract.GravityContract
	repo               *repository.Repo
	logsCursor         *entity.LogsCursor
	headBlock          uint
	isSynced           bool
	syncedMetric       prometheus.Gauge
	headBlockMetric    prometheus.Gauge
	fetchedBlockMetric prometheus.Gauge
}

func NewEventObserver(ctx context.Context, logger logging.Logger, client ethclient.Client, repo *repository.Repo, cfg *config.BridgeConfig, orchestrator common.Address) (*EventObserver, error) {
	chainID := cfg.Chain.ChainID
	logsCursor, err := repo.LogsCursors.GetByChainIDAndAddress(ctx, chainID, cfg.Address, orchestrator)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("failed to read logs cursor: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"chain_id":    chainID,
			"address":     cfg.Address,
			"start_block": cfg.StartBlock,
		}).Warn("contract cursor is not present, staring indexing from scratch")
		logsCursor = &entity.LogsCursor{
			ChainID:      chainID,
			Address:      cfg.Address,
			Orchestrator: orchestrator,
		}
		if cfg.StartBlock > 0 {
			logsCursor.LastFetchedBlock = cfg.StartBlock - 1
			logsCursor.LastProcessedBlock = cfg.StartBlock - 1
		}
	}
	gravityContract := contract.NewGravityContract(client, chainID, cfg.Address)
	gravityContract.SafeLogs = cfg.Chain.SafeLogsRequest
	commonLabels := prometheus.Labels{
		"chain_id":     chainID,
		"address":      cfg.Address.String(),
		"orchestrator": orchestrator.String(),
	}
	return &EventObserver{
		logger:             logger,
		cfg:                cfg,
		client:             client,
		contract:           gravityContract,
		repo:               repo,
		logsCursor:         logsCursor,
		syncedMetric:       SyncedObserver.With(commonLabels),
		headBlockMetric:    LatestHeadBlock.With(commonLabels),
		fetchedBlockMetric: LatestFetchedBlock.With(commonLabels),
	}, nil
}

func (o *EventObserver) IsSynced() bool {
	return o.isSynced
}

// LastFetchedBlock is the last block whose events are already stored.
func (o *EventObserver) LastFetchedBlock() uint {
	return o.logsCursor.LastFetchedBlock
}

// Poll fetches the next block range past the cursor and returns its events ordered by nonce.
// It returns no events once the observer reached the confirmed head.
func (o *EventObserver) Poll(ctx context.Context) ([]*entity.BridgeEvent, error) {
	events, _, err := o.poll(ctx)
	return events, err
}

func (o *EventObserver) poll(ctx context.Context) ([]*entity.BridgeEvent, bool, error) {
	head, err := o.client.BlockNumber(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("can't fetch latest block number: %w", err)
	}
	if head < o.cfg.BlockConfirmations {
		return nil, true, nil
	}
	head -= o.cfg.BlockConfirmations
	o.recordHeadBlockNumber(head)

	ranges := SplitBlockRange(o.logsCursor.LastFetchedBlock+1, head, o.cfg.MaxBlockRangeSize)
	if len(ranges) == 0 {
		return nil, true, nil
	}
	r := ranges[0]
	events, err := o.contract.EventsInRange(ctx, r.From, r.To)
	if err != nil {
		return nil, false, err
	}
	o.logger.WithFields(logrus.Fields{
		"count":      len(events),
		"from_block": r.From,
		"to_block":   r.To,
	}).Info("fetched bridge events in range")
	if len(events) > 0 {
		if err = o.repo.BridgeEvents.Ensure(ctx, events...); err != nil {
			return nil, false, fmt.Errorf("can't save bridge events: %w", err)
		}
	}
	if err = o.recordFetchedBlockNumber(ctx, r.To); err != nil {
		return nil, false, err
	}
	return events, len(ranges) == 1, nil
}

// Run polls until ctx is done, sleeping between polls only once it caught up with the chain.
func (o *EventObserver) Run(ctx context.Context) {
	o.logger.Info("starting bridge events observer")
	for {
		_, caughtUp, err := o.poll(ctx)
		if err != nil {
			o.logger.WithError(err).Error("failed to poll bridge events, retrying")
		}
		if err != nil || caughtUp {
			if !utils.ContextSleep(ctx, o.cfg.Chain.BlockIndexInterval) {
				return
			}
		} else if ctx.Err() != nil {
			return
		}
	}
}

func (o *EventObserver) recordHeadBlockNumber(blockNumber uint) {
	if blockNumber < o.headBlock {
		return
	}

	o.headBlock = blockNumber
	o.headBlockMetric.Set(float64(blockNumber))
	o.recordIsSynced()
}

func (o *EventObserver) recordIsSynced() {
	o.isSynced = o.logsCursor.LastFetchedBlock+defaultSyncedThreshold > o.headBlock
	if o.isSynced {
		o.syncedMetric.Set(1)
	} else {
		o.syncedMetric.Set(0)
	}
}

func (o *EventObserver) recordFetchedBlockNumber(ctx context.Context, blockNumber uint) error {
	if blockNumber < o.logsCursor.LastFetchedBlock {
		return nil
	}

	o.logsCursor.LastFetchedBlock = blockNumber
	o.logsCursor.LastProcessedBlock = blockNumber
	if err := o.repo.LogsCursors.Ensure(ctx, o.logsCursor); err != nil {
		return fmt.Errorf("can't update logs cursor: %w", err)
	}
	o.fetchedBlockMetric.Set(float64(blockNumber))
	o.recordIsSynced()
	return nil
}
