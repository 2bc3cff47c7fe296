package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode is returned when a response body is not a valid pairs document.
var ErrDecode = errors.New("decode pairs response")

// PairsResponse from GET /latest/dex/pairs/{chain}/{address}. The push
// endpoint delivers the same document per frame.
type PairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

// Pair is one entry of a pairs response.
type Pair struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     Token           `json:"baseToken"`
	QuoteToken    Token           `json:"quoteToken"`
	PriceNative   string          `json:"priceNative"`
	PriceUsd      string          `json:"priceUsd"`
	Volume        Periods         `json:"volume"`
	PriceChange   Periods         `json:"priceChange"`
	Liquidity     *Liquidity      `json:"liquidity"`
	FDV           float64         `json:"fdv"`
	MarketCap     float64         `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"`
	Txns          map[string]Txns `json:"txns,omitempty"`
}

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity in USD and native units. Absent for some pools.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Periods holds a value per rolling window.
type Periods struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// Txns counts buys and sells in a window.
type Txns struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// ParsePairsResponse decodes a raw pairs document. A null or missing
// "pairs" field decodes to an empty list.
func ParsePairsResponse(data []byte) (*PairsResponse, error) {
	var resp PairsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if resp.Pairs == nil {
		resp.Pairs = []Pair{}
	}
	return &resp, nil
}
