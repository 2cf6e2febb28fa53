// Package memory holds repository implementations used when no postgres database is configured.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bridgekit/gravity-orchestrator/db"
	"github.com/bridgekit/gravity-orchestrator/entity"
)

type cursorKey struct {
	chainID      string
	address      common.Address
	orchestrator common.Address
}

type logsCursorsRepo struct {
	mu      sync.RWMutex
	cursors map[cursorKey]entity.LogsCursor
}

func NewLogsCursorRepo() entity.LogsCursorsRepo {
	return &logsCursorsRepo{cursors: make(map[cursorKey]entity.LogsCursor)}
}

func (r *logsCursorsRepo) Ensure(_ context.Context, cursor *entity.LogsCursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := cursorKey{cursor.ChainID, cursor.Address, cursor.Orchestrator}
	now := time.Now()
	c := *cursor
	if old, ok := r.cursors[key]; ok {
		c.CreatedAt = old.CreatedAt
	} else {
		c.CreatedAt = &now
	}
	c.UpdatedAt = &now
	r.cursors[key] = c
	return nil
}

func (r *logsCursorsRepo) GetByChainIDAndAddress(_ context.Context, chainID string, addr, orchestrator common.Address) (*entity.LogsCursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cursors[cursorKey{chainID, addr, orchestrator}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &c, nil
}

type eventKey struct {
	chainID  string
	contract common.Address
}

type bridgeEventsRepo struct {
	mu     sync.RWMutex
	events map[eventKey]map[uint64]entity.BridgeEvent
}

func NewBridgeEventsRepo() entity.BridgeEventsRepo {
	return &bridgeEventsRepo{events: make(map[eventKey]map[uint64]entity.BridgeEvent)}
}

func (r *bridgeEventsRepo) Ensure(_ context.Context, events ...*entity.BridgeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	for _, e := range events {
		key := eventKey{e.ChainID, e.Contract}
		byNonce, ok := r.events[key]
		if !ok {
			byNonce = make(map[uint64]entity.BridgeEvent)
			r.events[key] = byNonce
		}
		if old, ok := byNonce[e.EventNonce]; ok {
			old.UpdatedAt = &now
			byNonce[e.EventNonce] = old
			continue
		}
		c := *e
		c.CreatedAt, c.UpdatedAt = &now, &now
		byNonce[e.EventNonce] = c
	}
	return nil
}

func (r *bridgeEventsRepo) GetByNonce(_ context.Context, chainID string, contract common.Address, nonce uint64) (*entity.BridgeEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.events[eventKey{chainID, contract}][nonce]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &e, nil
}

func (r *bridgeEventsRepo) FindFromNonce(_ context.Context, chainID string, contract common.Address, fromNonce uint64, limit uint64) ([]*entity.BridgeEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*entity.BridgeEvent, 0, limit)
	for nonce, e := range r.events[eventKey{chainID, contract}] {
		if nonce >= fromNonce {
			e := e
			res = append(res, &e)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].EventNonce < res[j].EventNonce
	})
	if uint64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

type submissionKey struct {
	nonce uint64
	hash  common.Hash
}

type claimSubmissionsRepo struct {
	mu   sync.RWMutex
	subs map[common.Address]map[submissionKey]entity.ClaimSubmission
}

func NewClaimSubmissionsRepo() entity.ClaimSubmissionsRepo {
	return &claimSubmissionsRepo{subs: make(map[common.Address]map[submissionKey]entity.ClaimSubmission)}
}

func (r *claimSubmissionsRepo) Ensure(_ context.Context, sub *entity.ClaimSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	byKey, ok := r.subs[sub.Orchestrator]
	if !ok {
		byKey = make(map[submissionKey]entity.ClaimSubmission)
		r.subs[sub.Orchestrator] = byKey
	}
	key := submissionKey{sub.EventNonce, sub.ClaimHash}
	now := time.Now()
	c := *sub
	if old, ok := byKey[key]; ok {
		c.CreatedAt = old.CreatedAt
	} else {
		c.CreatedAt = &now
	}
	c.UpdatedAt = &now
	byKey[key] = c
	return nil
}

func (r *claimSubmissionsRepo) FindLatest(_ context.Context, orchestrator common.Address) (*entity.ClaimSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *entity.ClaimSubmission
	for _, s := range r.subs[orchestrator] {
		s := s
		if latest == nil || s.EventNonce > latest.EventNonce ||
			(s.EventNonce == latest.EventNonce && s.UpdatedAt.After(*latest.UpdatedAt)) {
			latest = &s
		}
	}
	return latest, nil
}

func (r *claimSubmissionsRepo) FindByNonce(_ context.Context, orchestrator common.Address, nonce uint64) ([]*entity.ClaimSubmission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*entity.ClaimSubmission
	for key, s := range r.subs[orchestrator] {
		if key.nonce == nonce {
			s := s
			res = append(res, &s)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].CreatedAt.Before(*res[j].CreatedAt)
	})
	return res, nil
}

type bridgeStateSamplesRepo struct {
	mu      sync.RWMutex
	samples []entity.BridgeStateSample
}

func NewBridgeStateSamplesRepo() entity.BridgeStateSamplesRepo {
	return &bridgeStateSamplesRepo{}
}

func (r *bridgeStateSamplesRepo) Insert(_ context.Context, s *entity.BridgeStateSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	c.ID = uint(len(r.samples) + 1)
	now := time.Now()
	c.CreatedAt = &now
	r.samples = append(r.samples, c)
	return nil
}

func (r *bridgeStateSamplesRepo) FindLatest(_ context.Context, chainID string, limit uint64) ([]*entity.BridgeStateSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*entity.BridgeStateSample, 0, limit)
	for i := len(r.samples) - 1; i >= 0 && uint64(len(res)) < limit; i-- {
		if r.samples[i].ChainID == chainID {
			s := r.samples[i]
			res = append(res, &s)
		}
	}
	return res, nil
}
