package model

import (
	"math"
	"math/big"
	"testing"
	"time"
)

func TestPairKey(t *testing.T) {
	p := PairIdentity{Chain: "ethereum", Address: "0xabc", Symbol: "WETH/USDC"}

	if got := p.Key(); got != "ethereum:0xabc" {
		t.Errorf("Key() = %q, want %q", got, "ethereum:0xabc")
	}

	// Symbol does not take part in identity.
	relabeled := PairIdentity{Chain: "ethereum", Address: "0xabc", Symbol: "ETH"}
	if p.Key() != relabeled.Key() {
		t.Error("keys differ for same chain/address")
	}
	if p.Key().Hash() != relabeled.Key().Hash() {
		t.Error("hashes differ for same chain/address")
	}

	other := PairIdentity{Chain: "bsc", Address: "0xabc"}
	if p.Key() == other.Key() {
		t.Error("distinct pairs share a key")
	}
	if p.Key().Hash() == other.Key().Hash() {
		t.Error("distinct pairs share a hash")
	}
}

func TestToFixedPoint(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{100, "100000000000000000000"},
		{100.02, "100020000000000000000"},
		{0.000001, "1000000000000"},
		{1.5, "1500000000000000000"},
		{0, "0"},
		{-1, "0"},
		{math.NaN(), "0"},
	}

	for _, tt := range tests {
		got := ToFixedPoint(tt.in)
		if got.String() != tt.want {
			t.Errorf("ToFixedPoint(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestParseFixedPoint(t *testing.T) {
	got, err := ParseFixedPoint("3456.123456789012345678999")
	if err != nil {
		t.Fatalf("ParseFixedPoint() error = %v", err)
	}
	if got.String() != "3456123456789012345678" {
		t.Errorf("ParseFixedPoint() = %s, want floor of scaled value", got)
	}

	if _, err := ParseFixedPoint("abc"); err == nil {
		t.Error("expected error for non-numeric input")
	}
	if _, err := ParseFixedPoint("-1.0"); err == nil {
		t.Error("expected error for negative input")
	}
}

func TestFromFixedPoint(t *testing.T) {
	v, _ := new(big.Int).SetString("100500000000000000000", 10)
	if got := FromFixedPoint(v); got != 100.5 {
		t.Errorf("FromFixedPoint() = %v, want 100.5", got)
	}
	if got := FromFixedPoint(nil); got != 0 {
		t.Errorf("FromFixedPoint(nil) = %v, want 0", got)
	}
}

func TestPercentToBasis(t *testing.T) {
	tests := []struct {
		in   float64
		want int32
	}{
		{1.23, 123},
		{-1.23, -123},
		{-0.001, -1},
		{0.009, 0},
		{0, 0},
		{1e12, math.MaxInt32},
		{math.Inf(-1), math.MinInt32},
	}

	for _, tt := range tests {
		if got := PercentToBasis(tt.in); got != tt.want {
			t.Errorf("PercentToBasis(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParsePairs(t *testing.T) {
	t.Run("valid list", func(t *testing.T) {
		pairs, err := ParsePairs("ethereum:0xabc:WETH/USDC, bsc:0xdef:CAKE/BNB,")
		if err != nil {
			t.Fatalf("ParsePairs() error = %v", err)
		}
		if len(pairs) != 2 {
			t.Fatalf("len = %d, want 2", len(pairs))
		}
		if pairs[1].Chain != "bsc" || pairs[1].Address != "0xdef" || pairs[1].Symbol != "CAKE/BNB" {
			t.Errorf("pairs[1] = %+v", pairs[1])
		}
	})

	t.Run("empty", func(t *testing.T) {
		pairs, err := ParsePairs("")
		if err != nil || len(pairs) != 0 {
			t.Errorf("ParsePairs(\"\") = %v, %v", pairs, err)
		}
	})

	errs := []string{
		"ethereum:0xabc",
		":0xabc:SYM",
		"ethereum:0xabc:A,ethereum:0xabc:B",
	}
	for _, in := range errs {
		if _, err := ParsePairs(in); err == nil {
			t.Errorf("ParsePairs(%q) expected error", in)
		}
	}
}

func TestObservationFromRecord(t *testing.T) {
	r := &PriceRecord{
		Timestamp:      1700000000,
		Pair:           "WETH/USDC",
		Chain:          "ethereum",
		PriceUSD:       ToFixedPoint(2500.25),
		PriceChange24h: -150,
	}

	obs := ObservationFromRecord("ethereum:0xabc", r)
	if obs.PriceUSD != 2500.25 {
		t.Errorf("PriceUSD = %v, want 2500.25", obs.PriceUSD)
	}
	if obs.Change24h != -1.5 {
		t.Errorf("Change24h = %v, want -1.5", obs.Change24h)
	}
	if !obs.ObservedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("ObservedAt = %v", obs.ObservedAt)
	}
}
