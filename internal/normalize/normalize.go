// Package normalize turns provider pair documents into fixed-point price records.
package normalize

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rickgao/pairstream/internal/api"
	"github.com/rickgao/pairstream/internal/model"
)

// Selection rules for picking one entry out of a multi-result response.
const (
	SelectFirst     = "first"
	SelectAddress   = "address"
	SelectLiquidity = "liquidity"
)

// Selector picks the entry to normalize. It returns nil when none applies.
type Selector func(pair model.PairIdentity, entries []api.Pair) *api.Pair

// First picks the first entry.
func First(_ model.PairIdentity, entries []api.Pair) *api.Pair {
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

// ByAddress picks the entry whose pair address matches the requested one,
// falling back to the first entry.
func ByAddress(pair model.PairIdentity, entries []api.Pair) *api.Pair {
	for i := range entries {
		if strings.EqualFold(entries[i].PairAddress, pair.Address) {
			return &entries[i]
		}
	}
	return First(pair, entries)
}

// ByLiquidity picks the entry with the highest USD liquidity. Ties keep the
// earlier entry.
func ByLiquidity(_ model.PairIdentity, entries []api.Pair) *api.Pair {
	var best *api.Pair
	bestUSD := -1.0
	for i := range entries {
		usd := 0.0
		if entries[i].Liquidity != nil {
			usd = entries[i].Liquidity.USD
		}
		if usd > bestUSD {
			best, bestUSD = &entries[i], usd
		}
	}
	return best
}

// SelectorFor returns the selector for a rule name.
func SelectorFor(rule string) (Selector, error) {
	switch rule {
	case "", SelectFirst:
		return First, nil
	case SelectAddress:
		return ByAddress, nil
	case SelectLiquidity:
		return ByLiquidity, nil
	default:
		return nil, fmt.Errorf("unknown selection rule %q", rule)
	}
}

// Normalizer converts pairs documents into PriceRecords.
type Normalizer struct {
	selector Selector
	now      func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithSelector sets the entry selection rule.
func WithSelector(s Selector) Option {
	return func(n *Normalizer) {
		n.selector = s
	}
}

// WithClock sets the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer using the first-entry rule by default.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{selector: First, now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize returns the record for the selected entry, or nil when the
// response has no usable price.
func (n *Normalizer) Normalize(pair model.PairIdentity, resp *api.PairsResponse) *model.PriceRecord {
	if resp == nil || len(resp.Pairs) == 0 {
		return nil
	}

	entry := n.selector(pair, resp.Pairs)
	if entry == nil || entry.PriceUsd == "" {
		return nil
	}

	price, err := model.ParseFixedPoint(entry.PriceUsd)
	if err != nil {
		return nil
	}

	liquidity := new(big.Int)
	if entry.Liquidity != nil {
		liquidity = model.ToFixedPoint(entry.Liquidity.USD)
	}

	return &model.PriceRecord{
		Timestamp:      uint64(n.now().Unix()),
		Pair:           entry.BaseToken.Symbol + "/" + entry.QuoteToken.Symbol,
		Chain:          entry.ChainID,
		PriceUSD:       price,
		LiquidityUSD:   liquidity,
		Volume24hUSD:   model.ToFixedPoint(entry.Volume.H24),
		PriceChange1h:  model.PercentToBasis(entry.PriceChange.H1),
		PriceChange24h: model.PercentToBasis(entry.PriceChange.H24),
	}
}
