package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PairIdentity identifies a monitored trading pair.
type PairIdentity struct {
	Chain   string // Chain id as used by the provider (e.g., "ethereum")
	Address string // Pair contract address on that chain
	Symbol  string // Display label, not part of identity
}

// Key returns the pair's identity key.
func (p PairIdentity) Key() PairKey {
	return NewPairKey(p.Chain, p.Address)
}

// PairKey is the stable identity of a pair: "<chain>:<address>".
type PairKey string

// NewPairKey builds the key for a (chain, address) tuple.
func NewPairKey(chain, address string) PairKey {
	return PairKey(chain + ":" + address)
}

// Hash returns the 32-byte ledger record id for the key.
func (k PairKey) Hash() common.Hash {
	return crypto.Keccak256Hash([]byte(k))
}

func (k PairKey) String() string {
	return string(k)
}

// PriceRecord is one normalized price observation. Treat as immutable.
type PriceRecord struct {
	Timestamp      uint64   // Seconds since epoch at normalization time
	Pair           string   // "<base>/<quote>" label
	Chain          string   // Chain id reported by the provider
	PriceUSD       *big.Int // floor(price * 10^18)
	LiquidityUSD   *big.Int // floor(liquidity * 10^18), 0 if unknown
	Volume24hUSD   *big.Int // floor(volume * 10^18), 0 if unknown
	PriceChange1h  int32    // floor(pct * 100)
	PriceChange24h int32    // floor(pct * 100)
}

// Observation is the digest tuple recorded for every accepted update.
type Observation struct {
	PairKey    PairKey   `json:"pair_key"`
	Pair       string    `json:"pair"`
	Chain      string    `json:"chain"`
	PriceUSD   float64   `json:"price_usd"`
	Change24h  float64   `json:"change_24h"`
	ObservedAt time.Time `json:"observed_at"`
}

// ObservationFromRecord derives the digest tuple from an accepted record.
func ObservationFromRecord(key PairKey, r *PriceRecord) Observation {
	return Observation{
		PairKey:    key,
		Pair:       r.Pair,
		Chain:      r.Chain,
		PriceUSD:   FromFixedPoint(r.PriceUSD),
		Change24h:  float64(r.PriceChange24h) / 100,
		ObservedAt: time.Unix(int64(r.Timestamp), 0).UTC(),
	}
}
