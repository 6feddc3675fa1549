package credstore

import (
	"context"
	"sync"
)

// MemoryStore keeps records in a process-local map. Contents are lost on
// restart, so it is only suitable for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// Compile-time check to ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Get returns a copy of the stored record. Returns ErrNotFound if absent.
func (m *MemoryStore) Get(ctx context.Context, deviceID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	record, ok := m.records[deviceID]
	if !ok {
		return nil, ErrNotFound
	}
	return &record, nil
}

// Put creates or fully overwrites the record for record.DeviceID.
func (m *MemoryStore) Put(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[record.DeviceID] = *record
	return nil
}

// Update overwrites an existing record. Returns ErrNotFound if absent.
func (m *MemoryStore) Update(ctx context.Context, record *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[record.DeviceID]; !ok {
		return ErrNotFound
	}
	m.records[record.DeviceID] = *record
	return nil
}

// Delete removes the record for the device. Returns ErrNotFound if absent.
func (m *MemoryStore) Delete(ctx context.Context, deviceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[deviceID]; !ok {
		return ErrNotFound
	}
	delete(m.records, deviceID)
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error {
	return nil
}
