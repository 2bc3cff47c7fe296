package ledger

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// Digest returns keccak256 over ID || SchemaID || keccak256(Data) of every
// entry, in order.
func Digest(entries []Entry) common.Hash {
	buf := make([]byte, 0, len(entries)*3*common.HashLength)
	for _, e := range entries {
		buf = append(buf, e.ID.Bytes()...)
		buf = append(buf, e.SchemaID.Bytes()...)
		buf = append(buf, crypto.Keccak256(e.Data)...)
	}
	return crypto.Keccak256Hash(buf)
}

// Seal assigns a transaction id and signs entries. A nil signer produces an
// unsigned batch.
func Seal(signer Signer, entries []Entry, now time.Time) (Batch, error) {
	if len(entries) == 0 {
		return Batch{}, ErrEmptyBatch
	}

	b := Batch{
		TxID:      uuid.NewString(),
		Digest:    Digest(entries),
		Entries:   entries,
		CreatedAt: now,
	}
	if signer != nil {
		sig, err := signer.Sign(b.Digest)
		if err != nil {
			return Batch{}, fmt.Errorf("sign batch: %w", err)
		}
		b.Publisher = signer.Address()
		b.Signature = sig
	}
	return b, nil
}
