package model

import (
	"fmt"
	"strings"
)

// ParsePairs parses a "chain:address:symbol,..." list. Blank entries are
// skipped; duplicate keys are rejected.
func ParsePairs(s string) ([]PairIdentity, error) {
	var pairs []PairIdentity
	seen := make(map[PairKey]bool)

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid pair %q: want chain:address:symbol", entry)
		}
		p := PairIdentity{
			Chain:   strings.TrimSpace(parts[0]),
			Address: strings.TrimSpace(parts[1]),
			Symbol:  strings.TrimSpace(parts[2]),
		}
		if p.Chain == "" || p.Address == "" {
			return nil, fmt.Errorf("invalid pair %q: chain and address are required", entry)
		}
		if seen[p.Key()] {
			return nil, fmt.Errorf("duplicate pair %q", p.Key())
		}
		seen[p.Key()] = true
		pairs = append(pairs, p)
	}

	return pairs, nil
}
