package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rickgao/pairstream/internal/model"
)

// Errors
var (
	ErrEmptyBatch = errors.New("empty batch")
	ErrClosed     = errors.New("ledger closed")
)

// Entry is one record to store: latest value for (SchemaID, ID).
type Entry struct {
	Key      model.PairKey // Pair the record belongs to
	ID       common.Hash   // Record id, Key.Hash()
	SchemaID common.Hash   // Ledger schema the payload conforms to
	Data     []byte        // Encoded payload
}

// Batch is a signed group of entries committed together.
type Batch struct {
	TxID      string
	Publisher common.Address
	Digest    common.Hash
	Signature []byte
	Entries   []Entry
	CreatedAt time.Time
}

// Writer commits batches to a ledger backend.
type Writer interface {
	// Write commits entries as one batch and returns its transaction id.
	Write(ctx context.Context, entries []Entry) (string, error)

	// Close releases backend resources.
	Close() error
}

// Signer is the publisher identity batches are signed with.
type Signer interface {
	Address() common.Address
	Sign(digest common.Hash) ([]byte, error)
}
