// Package codec encodes price records into the ledger's fixed wire schema.
//
// Schema (ABI tuple, in order):
//
//	uint64 timestamp, string pair, string chain, uint256 priceUsd,
//	uint256 liquidity, uint256 volume24h, int32 priceChange1h, int32 priceChange24h
//
// The field order and widths are fixed by the external ledger schema and
// must not change.
package codec
