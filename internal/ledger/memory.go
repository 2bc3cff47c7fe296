package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type recordKey struct {
	schema common.Hash
	id     common.Hash
}

// MemoryLedger keeps the latest value per record in process. Failures can be
// injected with FailNext.
type MemoryLedger struct {
	signer Signer

	mu       sync.Mutex
	records  map[recordKey][]byte
	batches  []Batch
	failures []error
	closed   bool
}

// NewMemoryLedger creates an empty in-memory ledger. signer may be nil.
func NewMemoryLedger(signer Signer) *MemoryLedger {
	return &MemoryLedger{
		signer:  signer,
		records: make(map[recordKey][]byte),
	}
}

// Write commits entries as one batch.
func (m *MemoryLedger) Write(ctx context.Context, entries []Entry) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return "", err
	}

	batch, err := Seal(m.signer, entries, time.Now())
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		m.records[recordKey{e.SchemaID, e.ID}] = append([]byte(nil), e.Data...)
	}
	m.batches = append(m.batches, batch)
	return batch.TxID, nil
}

// FailNext makes the next len(errs) writes fail with the given errors.
func (m *MemoryLedger) FailNext(errs ...error) {
	m.mu.Lock()
	m.failures = append(m.failures, errs...)
	m.mu.Unlock()
}

// Get returns the stored payload for a record.
func (m *MemoryLedger) Get(schemaID, id common.Hash) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.records[recordKey{schemaID, id}]
	return data, ok
}

// Batches returns every committed batch in commit order.
func (m *MemoryLedger) Batches() []Batch {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Batch(nil), m.batches...)
}

// Len returns the number of distinct records stored.
func (m *MemoryLedger) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Close marks the ledger closed.
func (m *MemoryLedger) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
