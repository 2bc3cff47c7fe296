// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Pairs can be listed under "pairs" or supplied as a "chain:address:symbol,..."
// string in "pair_list" (typically "${PAIRS}").
package config
