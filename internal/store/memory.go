package store

import (
	"context"
	"sync"

	"msecli/pkg/contracts/domain"
)

// MemoryStore is a Store held in memory
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.TradingRecord

	// AppendErr, when set, is returned by every Append
	AppendErr error
	appends   int
}

// NewMemoryStore creates a store holding a copy of records
func NewMemoryStore(records ...domain.TradingRecord) *MemoryStore {
	return &MemoryStore{records: append([]domain.TradingRecord(nil), records...)}
}

// Scan implements Store
func (m *MemoryStore) Scan(ctx context.Context) ([]domain.TradingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TradingRecord(nil), m.records...), nil
}

// Append implements Store
func (m *MemoryStore) Append(ctx context.Context, records []domain.TradingRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	if err := validateRecords(records); err != nil {
		return err
	}
	m.records = append(m.records, records...)
	m.appends++
	return nil
}

// Appends returns the number of non-empty Append calls that succeeded
func (m *MemoryStore) Appends() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.appends
}

// Close implements Store
func (m *MemoryStore) Close() error {
	return nil
}
