// Package api provides the DexScreener REST client.
//
// Endpoints:
//   - Pair lookup: https://api.dexscreener.com/latest/dex/pairs/{chain}/{address}
//
// Responses carry a list of pair entries; selecting one of them is the
// normalizer's job, so the client returns the list untouched.
package api
