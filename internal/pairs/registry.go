package pairs

import (
	"sort"
	"sync"
	"time"

	"github.com/rickgao/pairstream/internal/model"
)

// Entry is the registry's view of one pair.
type Entry struct {
	Pair         model.PairIdentity
	Monitored    bool
	StopReason   string
	AddedAt      time.Time
	Accepted     int64
	LastAccepted time.Time
}

// Registry is a concurrency-safe set of pairs keyed by PairKey.
type Registry struct {
	mu    sync.RWMutex
	pairs map[model.PairKey]*Entry
	now   func() time.Time
}

// NewRegistry creates a registry holding pairs, none of them monitored yet.
func NewRegistry(pairs ...model.PairIdentity) *Registry {
	r := &Registry{
		pairs: make(map[model.PairKey]*Entry),
		now:   time.Now,
	}
	for _, p := range pairs {
		r.Add(p)
	}
	return r
}

// Add registers pair. It returns false if the pair is already known.
func (r *Registry) Add(pair model.PairIdentity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pair.Key()
	if _, ok := r.pairs[key]; ok {
		return false
	}
	r.pairs[key] = &Entry{Pair: pair, AddedAt: r.now()}
	return true
}

// Remove drops a pair. It returns false if the pair was unknown.
func (r *Registry) Remove(key model.PairKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pairs[key]; !ok {
		return false
	}
	delete(r.pairs, key)
	return true
}

// Get returns a copy of a pair's entry.
func (r *Registry) Get(key model.PairKey) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.pairs[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// SetMonitored marks a pair started, or stopped with a reason.
func (r *Registry) SetMonitored(key model.PairKey, monitored bool, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.pairs[key]; ok {
		e.Monitored = monitored
		if monitored {
			e.StopReason = ""
		} else {
			e.StopReason = reason
		}
	}
}

// RecordAccepted counts an update accepted by the gate.
func (r *Registry) RecordAccepted(key model.PairKey) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.pairs[key]; ok {
		e.Accepted++
		e.LastAccepted = r.now()
	}
}

// Label returns the display symbol for key, or the key itself.
func (r *Registry) Label(key model.PairKey) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if e, ok := r.pairs[key]; ok && e.Pair.Symbol != "" {
		return e.Pair.Symbol
	}
	return string(key)
}

// All returns every entry sorted by key.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, 0, len(r.pairs))
	for _, e := range r.pairs {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pair.Key() < out[j].Pair.Key()
	})
	return out
}

// Pairs returns every registered pair sorted by key.
func (r *Registry) Pairs() []model.PairIdentity {
	entries := r.All()
	out := make([]model.PairIdentity, len(entries))
	for i, e := range entries {
		out[i] = e.Pair
	}
	return out
}

// Len returns the number of registered pairs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pairs)
}

// MonitoredCount returns how many pairs have a running connector.
func (r *Registry) MonitoredCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.pairs {
		if e.Monitored {
			n++
		}
	}
	return n
}
