package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bridgekit/gravity-orchestrator/chain/httpquery"
	"github.com/bridgekit/gravity-orchestrator/config"
	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/logging"
	"github.com/bridgekit/gravity-orchestrator/monitor"
	"github.com/bridgekit/gravity-orchestrator/repository"
)

func main() {
	logger := logging.New()

	cfg, err := config.ReadConfigFromFile("config.yml")
	if err != nil {
		logger.WithError(err).Fatal("can't read config")
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.Monitor == nil || cfg.Destination == nil {
		logger.Fatal("monitor and destination sections are required")
	}

	repo := repository.NewMemoryRepo()
	if cfg.DBConfig != nil {
		dbConn, err2 := db.ConnectToDBAndMigrate(context.Background(), cfg.DBConfig)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't connect to database and apply migrations")
		}
		defer dbConn.Close()
		repo = repository.NewRepo(dbConn)
	}

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		err2 := http.ListenAndServe(":2112", nil)
		if err2 != nil {
			logger.WithError(err2).Fatal("can't start listener for prometheus metrics")
		}
	}()

	client := httpquery.NewClient(cfg.Monitor.QueryURL, cfg.Monitor.Timeout)
	m, err := monitor.NewHaltMonitor(logger.WithField("chain_id", cfg.Destination.ChainID), client, repo, cfg.Destination.ChainID, cfg.Monitor)
	if err != nil {
		logger.WithError(err).Fatal("can't initialize halt monitor")
	}

	ctx, cancel := context.WithCancel(context.Background())
	go m.Start(ctx)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	for range c {
		cancel()
		logger.Warn("caught CTRL-C, gracefully terminating")
		return
	}
}
