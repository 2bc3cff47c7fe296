package dedup

import (
	"math/big"
	"sync"
	"time"

	"github.com/rickgao/pairstream/internal/model"
)

// Config holds gate thresholds.
type Config struct {
	MinUpdateInterval    time.Duration // default: 1s
	PriceChangeThreshold float64       // relative, default: 0.001 (0.1%)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinUpdateInterval:    time.Second,
		PriceChangeThreshold: 0.001,
	}
}

// Decision explains a ShouldAccept outcome.
type Decision int

const (
	AcceptedFirst Decision = iota
	AcceptedChange
	SuppressedInterval
	SuppressedThreshold
)

// Accepted reports whether the decision lets the record through.
func (d Decision) Accepted() bool {
	return d == AcceptedFirst || d == AcceptedChange
}

func (d Decision) String() string {
	switch d {
	case AcceptedFirst:
		return "accepted_first"
	case AcceptedChange:
		return "accepted_change"
	case SuppressedInterval:
		return "suppressed_interval"
	case SuppressedThreshold:
		return "suppressed_threshold"
	default:
		return "unknown"
	}
}

type cacheEntry struct {
	price      *big.Int
	acceptedAt time.Time
}

// Gate decides whether a normalized record is materially new.
type Gate struct {
	cfg Config
	now func() time.Time

	mu    sync.Mutex
	cache map[model.PairKey]cacheEntry
}

// NewGate creates a gate. A nil clock uses time.Now.
func NewGate(cfg Config, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		cfg:   cfg,
		now:   now,
		cache: make(map[model.PairKey]cacheEntry),
	}
}

// ShouldAccept reports whether record should be published.
func (g *Gate) ShouldAccept(key model.PairKey, record *model.PriceRecord) bool {
	return g.Decide(key, record).Accepted()
}

// Decide runs the gate and returns the reason for its outcome. Accepted
// records overwrite the pair's cache entry.
func (g *Gate) Decide(key model.PairKey, record *model.PriceRecord) Decision {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	cached, ok := g.cache[key]
	if !ok {
		g.cache[key] = cacheEntry{price: record.PriceUSD, acceptedAt: now}
		return AcceptedFirst
	}

	if now.Sub(cached.acceptedAt) < g.cfg.MinUpdateInterval {
		return SuppressedInterval
	}

	if relativeChange(cached.price, record.PriceUSD) < g.cfg.PriceChangeThreshold {
		return SuppressedThreshold
	}

	g.cache[key] = cacheEntry{price: record.PriceUSD, acceptedAt: now}
	return AcceptedChange
}

// Reset drops one pair's cache entry.
func (g *Gate) Reset(key model.PairKey) {
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

// Clear drops every cache entry.
func (g *Gate) Clear() {
	g.mu.Lock()
	g.cache = make(map[model.PairKey]cacheEntry)
	g.mu.Unlock()
}

// Size returns the number of tracked pairs.
func (g *Gate) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

// relativeChange returns |next - prev| / prev, or 1 when prev is zero. The
// quotient is exact before the final rounding to float64.
func relativeChange(prev, next *big.Int) float64 {
	if prev == nil || prev.Sign() == 0 {
		return 1
	}
	if next == nil {
		next = new(big.Int)
	}
	diff := new(big.Int).Sub(next, prev)
	diff.Abs(diff)

	q, _ := new(big.Rat).SetFrac(diff, prev).Float64()
	return q
}
