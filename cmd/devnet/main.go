package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/bridgekit/gravity-orchestrator/chain/local"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/ethclient"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/monitor"
	"github.com/bridgekit/gravity-orchestrator/orchestrator"
	"github.com/bridgekit/gravity-orchestrator/presenter"
	"github.com/bridgekit/gravity-orchestrator/repository"
)

func main() {
	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.Bridge == nil || cfg.Orchestrator == nil {
		logger.Fatal("bridge and orchestrator sections are required")
	}

	repo := repository.NewMemoryRepo()
	if cfg.DBConfig != nil {
		dbConn, err2 := db.ConnectToDBAndMigrate(context.Background(), cfg.DBConfig)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't connect to database and apply migrations")
		}
		defer dbConn.Close()
		repo = repository.NewRepo(dbConn)
	} else {
		logger.Warn("postgres is not configured, keeping state in memory")
	}

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err2 := http.ListenAndServe(":2112", nil)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't start listener for prometheus metrics")
		}
	}()

	node, keys, err := local.NewFromConfig(logger.WithField("service", "node"), cfg)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize destination chain node")
	}

	ethClient, err := ethclient.NewClient(cfg.Bridge.Chain.RPC.Host, cfg.Bridge.Chain.RPC.Timeout, cfg.Bridge.Chain.ChainID)
	if err != nil {
		logger.WithError(err).Fatal("can't dial source chain rpc client")
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		node.Start(ctx)
		return nil
	})

	if cfg.Presenter != nil {
		pr := presenter.NewPresenter(logger.WithField("service", "presenter"), node, repo, node.ChainID())
		g.Go(func() error {
			return pr.Serve(ctx, cfg.Presenter.Host)
		})
	}

	if cfg.Monitor != nil {
		m, err2 := monitor.NewHaltMonitor(logger.WithField("service", "monitor"), node, repo, node.ChainID(), cfg.Monitor)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't initialize halt monitor")
		}
		g.Go(func() error {
			m.Start(ctx)
			return nil
		})
	}

	for _, key := range keys {
		addr := crypto.PubkeyToAddress(key.PublicKey)
		orchLogger := logger.WithField("orchestrator", addr)
		observer, err2 := orchestrator.NewEventObserver(ctx, orchLogger.WithField("service", "observer"), ethClient, repo, cfg.Bridge, addr)
		if err2 != nil {
			orchLogger.WithError(err2).Fatal("can't initialize event observer")
		}
		submitter := orchestrator.NewClaimSubmitter(orchLogger.WithField("service", "submitter"), node, repo, cfg.Bridge, cfg.Orchestrator, key)
		o := orchestrator.NewOrchestrator(orchLogger, observer, submitter, cfg.Orchestrator.PollInterval)
		g.Go(func() error {
			return o.Run(ctx)
		})
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		logger.Warn("caught CTRL-C, gracefully terminating")
		cancel()
	}()

	if err = g.Wait(); err != nil {
		logger.WithError(err).Error("devnet stopped with error")
	}
}
