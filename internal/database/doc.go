// Package database opens the Postgres pool backing the ledger.
package database
