package repository

import (
	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/entity"
	"github.com/bridgekit/gravity-orchestrator/repository/memory"
	"github.com/bridgekit/gravity-orchestrator/repository/postgres"
)

type Repo struct {
	LogsCursors        entity.LogsCursorsRepo
	BridgeEvents       entity.BridgeEventsRepo
	ClaimSubmissions   entity.ClaimSubmissionsRepo
	BridgeStateSamples entity.BridgeStateSamplesRepo
}

func NewRepo(db *db.DB) *Repo {
	return &Repo{
		LogsCursors:        postgres.NewLogsCursorRepo("logs_cursors", db),
		BridgeEvents:       postgres.NewBridgeEventsRepo("bridge_events", db),
		ClaimSubmissions:   postgres.NewClaimSubmissionsRepo("claim_submissions", db),
		BridgeStateSamples: postgres.NewBridgeStateSamplesRepo("bridge_state_samples", db),
	}
}

func NewMemoryRepo() *Repo {
	return &Repo{
		LogsCursors:        memory.NewLogsCursorRepo(),
		BridgeEvents:       memory.NewBridgeEventsRepo(),
		ClaimSubmissions:   memory.NewClaimSubmissionsRepo(),
		BridgeStateSamples: memory.NewBridgeStateSamplesRepo(),
	}
}
