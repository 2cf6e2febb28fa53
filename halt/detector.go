// Package halt decides whether the bridge has stalled because validators disagree
// on the event stream.
package halt

import (
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type State int

const (
	Normal State = iota
	Halted
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Halted:
		return "halted"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "normal":
		*s = Normal
	case "halted":
		*s = Halted
	default:
		return fmt.Errorf("unknown bridge state %q", text)
	}
	return nil
}

// Snapshot is the nonce view the detector works on.
type Snapshot struct {
	LastObservedNonce uint64                    `json:"last_observed_nonce"`
	ValidatorNonces   map[common.Address]uint64 `json:"validator_nonces"`
	// Contested is set when more than one unfinalized attestation exists at LastObservedNonce+1.
	Contested bool `json:"contested"`
	// Quorate is set when an unfinalized attestation at LastObservedNonce+1 has reached quorum.
	Quorate bool `json:"quorate"`
}

func (s Snapshot) MaxValidatorNonce() uint64 {
	var res uint64
	for _, n := range s.ValidatorNonces {
		if n > res {
			res = n
		}
	}
	return res
}

func (s Snapshot) MinValidatorNonce() uint64 {
	first := true
	var res uint64
	for _, n := range s.ValidatorNonces {
		if first || n < res {
			res, first = n, false
		}
	}
	return res
}

// sample remembers since when a value has been both unchanged and behind.
type sample struct {
	value  uint64
	behind bool
	since  time.Time
}

// Detector is level triggered: Evaluate may be called at any cadence and the verdict only
// depends on the current snapshot and on how long each nonce has been unchanged.
// Detector is not safe for concurrent use.
type Detector struct {
	stallWindow  time.Duration
	lastObserved *sample
	validators   map[common.Address]*sample
	state        State
}

func NewDetector(stallWindow time.Duration) *Detector {
	return &Detector{
		stallWindow: stallWindow,
		validators:  make(map[common.Address]*sample),
	}
}

// track restarts the timer when the value moves or when it falls behind.
func track(s *sample, now time.Time, value uint64, behind bool) *sample {
	if s == nil || s.value != value || (behind && !s.behind) {
		return &sample{value: value, behind: behind, since: now}
	}
	s.behind = behind
	return s
}

func (d *Detector) observe(now time.Time, snap Snapshot) {
	maxNonce := snap.MaxValidatorNonce()
	d.lastObserved = track(d.lastObserved, now, snap.LastObservedNonce, maxNonce > snap.LastObservedNonce)
	for addr, nonce := range snap.ValidatorNonces {
		d.validators[addr] = track(d.validators[addr], now, nonce, nonce < maxNonce)
	}
	for addr := range d.validators {
		if _, ok := snap.ValidatorNonces[addr]; !ok {
			delete(d.validators, addr)
		}
	}
}

// Evaluate records the snapshot and returns the resulting bridge state.
func (d *Detector) Evaluate(now time.Time, snap Snapshot) State {
	d.observe(now, snap)
	d.state = d.decide(now, snap)
	return d.state
}

func (d *Detector) decide(now time.Time, snap Snapshot) State {
	maxNonce := snap.MaxValidatorNonce()
	if maxNonce <= snap.LastObservedNonce || snap.Quorate {
		return Normal
	}
	if !d.stalled(now, d.lastObserved) {
		return Normal
	}
	if snap.Contested {
		return Halted
	}
	if len(d.lagging(now, snap, maxNonce)) > 0 {
		return Halted
	}
	return Normal
}

func (d *Detector) stalled(now time.Time, s *sample) bool {
	return s != nil && s.behind && now.Sub(s.since) > d.stallWindow
}

func (d *Detector) lagging(now time.Time, snap Snapshot, maxNonce uint64) []common.Address {
	var res []common.Address
	for addr, nonce := range snap.ValidatorNonces {
		if nonce < maxNonce && d.stalled(now, d.validators[addr]) {
			res = append(res, addr)
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Hex() < res[j].Hex()
	})
	return res
}

// LaggingValidators lists validators that stay below the highest nonce, without moving, for longer
// than the stall window.
// It relies on samples recorded by the last Evaluate call.
func (d *Detector) LaggingValidators(now time.Time, snap Snapshot) []common.Address {
	return d.lagging(now, snap, snap.MaxValidatorNonce())
}

// ObservedStallDuration reports for how long the last observed nonce has not moved while
// some validator was already ahead of it.
func (d *Detector) ObservedStallDuration(now time.Time) time.Duration {
	if d.lastObserved == nil || !d.lastObserved.behind {
		return 0
	}
	return now.Sub(d.lastObserved.since)
}

func (d *Detector) State() State {
	return d.state
}

// Reset restarts every stall timer at now and clears the halted verdict.
func (d *Detector) Reset(now time.Time) {
	if d.lastObserved != nil {
		d.lastObserved.since = now
	}
	for _, s := range d.validators {
		s.since = now
	}
	d.state = Normal
}
