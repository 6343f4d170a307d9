package network

import (
	"math"
	"math/rand"
	"time"

	"github.com/blaesus/ctbc/pkg/wire/payload"
)

// CandidateStatus records whether a candidate is currently eligible for
// selection. Candidates are never deleted, only disabled, so the registry's
// insertion order and history survive a bad connection attempt.
type CandidateStatus int

const (
	CandidateActive CandidateStatus = iota
	CandidateDisabled
)

// Candidate is everything the registry remembers about one address,
// independent of whether it is currently bound to a peer slot. Binding is
// tracked by the pool, not here: a Candidate has no notion of "in use".
type Candidate struct {
	Address    payload.NetAddr
	LastSeen   time.Time
	Status     CandidateStatus
	AvgLatency time.Duration
}

// ScoringConfig carries the tunables the scoring formula depends on.
type ScoringConfig struct {
	LatencyTolerance time.Duration
}

const (
	freshnessWeek = 7 * 24 * time.Hour
	freshnessDay  = 24 * time.Hour

	statusDisabledPenalty = -10.0
	freshnessOld          = 0.8
	freshnessMid          = 1.0
	freshnessRecent       = 0.5
	latencyUnmeasured     = 1.0
	jitterSpan            = 2.0
)

// Registry tracks every address this node has ever heard of. It is not
// safe for concurrent use: by design all mutation happens on the single
// event-loop goroutine that also owns the peer pool.
type Registry struct {
	clock Clock
	rnd   *rand.Rand
	order []string
	byKey map[string]*Candidate
}

// NewRegistry creates an empty registry. seed fixes the jitter source for
// reproducible tests; production callers should derive it from the clock.
func NewRegistry(clock Clock, seed int64) *Registry {
	return &Registry{
		clock: clock,
		rnd:   rand.New(rand.NewSource(seed)),
		byKey: make(map[string]*Candidate),
	}
}

// Add records addr as last seen at timestamp, creating a new active
// candidate or refreshing an existing one. Non-IPv4 addresses are silently
// ignored; the registry and scoring model only reason about IPv4 peers.
func (r *Registry) Add(addr payload.NetAddr, seen time.Time) {
	if !addr.IsIPv4() {
		return
	}
	key := addr.Key()
	if c, ok := r.byKey[key]; ok {
		c.Address = addr
		if seen.After(c.LastSeen) {
			c.LastSeen = seen
		}
		return
	}
	r.byKey[key] = &Candidate{Address: addr, LastSeen: seen, Status: CandidateActive}
	r.order = append(r.order, key)
}

// Get returns the candidate for key, if any.
func (r *Registry) Get(key string) (*Candidate, bool) {
	c, ok := r.byKey[key]
	return c, ok
}

// Disable marks key's candidate ineligible for future selection without
// removing its history. A handshake timeout disables its candidate; a
// peer-life timeout (a peer that simply aged out after behaving fine) does
// not, so the node will happily reconnect to it later.
func (r *Registry) Disable(key string) {
	if c, ok := r.byKey[key]; ok {
		c.Status = CandidateDisabled
	}
}

// RecordLatency folds a fresh round-trip sample into the candidate's running
// average latency using a simple exponential blend.
func (r *Registry) RecordLatency(key string, sample time.Duration) {
	c, ok := r.byKey[key]
	if !ok {
		return
	}
	if c.AvgLatency == 0 {
		c.AvgLatency = sample
		return
	}
	c.AvgLatency = (c.AvgLatency + sample) / 2
}

// Count returns the total number of known candidates, active and disabled.
func (r *Registry) Count() int { return len(r.order) }

// Score computes the candidate's current selection weight: a status
// component (0 for active, a heavy penalty for disabled), a freshness
// component that favors neither too-stale nor brand-new sightings evenly,
// a latency component that rewards fast average round trips, and a small
// uniform jitter that breaks ties and avoids a deterministic pecking order
// across restarts.
func (r *Registry) Score(c *Candidate, cfg ScoringConfig) float64 {
	var status float64
	if c.Status == CandidateDisabled {
		status = statusDisabledPenalty
	}

	age := r.clock.Now().Sub(c.LastSeen)
	var freshness float64
	switch {
	case age > freshnessWeek:
		freshness = freshnessOld
	case age > freshnessDay:
		freshness = freshnessMid
	default:
		freshness = freshnessRecent
	}

	var latency float64
	if c.AvgLatency > 0 {
		latency = float64(cfg.LatencyTolerance) / float64(c.AvgLatency)
	} else {
		latency = latencyUnmeasured
	}

	jitter := r.rnd.Float64() * jitterSpan

	return status + freshness + latency + jitter
}

// PickBestNonPeer selects the highest-scoring candidate whose key is not
// present in bound and that is not disabled. Ties are resolved by
// insertion order: the comparison
// only replaces the current best on a strictly higher score, so among equal
// scores the earliest-registered candidate wins.
func (r *Registry) PickBestNonPeer(bound map[string]bool, cfg ScoringConfig) (*Candidate, string, bool) {
	var (
		best      *Candidate
		bestKey   string
		bestScore = math.Inf(-1)
	)
	for _, key := range r.order {
		if bound[key] {
			continue
		}
		c := r.byKey[key]
		if c.Status == CandidateDisabled {
			continue
		}
		s := r.Score(c, cfg)
		if best == nil || s > bestScore {
			best, bestKey, bestScore = c, key, s
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best, bestKey, true
}
