// Package model defines the shared data types that flow through the pipeline.
//
// Conventions:
//   - Pairs are identified by PairKey ("<chain>:<address>"); the symbol is a label only
//   - Prices, liquidity and volume: unsigned fixed point scaled by 10^18 (*big.Int)
//   - Percent changes: signed basis points (pct * 100, floored) as int32
//   - Record timestamps: uint64 seconds since Unix epoch
package model
