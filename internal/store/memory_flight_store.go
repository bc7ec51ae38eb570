package store

import (
	"context"
	"sync"
	"time"

	"github.com/skyward/flighttrack/internal/model"
)

// MemoryFlightStore implements FlightStore with in-process maps. It backs
// local development and tests; it enforces the same invariants as the
// production adapters, including the cap, move-to-front and tolerant List.
type MemoryFlightStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*model.FlightRecord
	indexes map[string][]string
}

// NewMemoryFlightStore creates an empty in-memory flight store.
func NewMemoryFlightStore() *MemoryFlightStore {
	return &MemoryFlightStore{
		records: make(map[string]map[string]*model.FlightRecord),
		indexes: make(map[string][]string),
	}
}

// SaveFlight upserts the record and promotes its trace id in the index.
func (s *MemoryFlightStore) SaveFlight(ctx context.Context, record *model.FlightRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	stored := *record
	stored.CreatedAt = now
	stored.UpdatedAt = now

	owned, ok := s.records[record.OwnerID]
	if !ok {
		owned = make(map[string]*model.FlightRecord)
		s.records[record.OwnerID] = owned
	}
	if existing, ok := owned[record.TraceID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}

	owned[record.TraceID] = &stored
	s.indexes[record.OwnerID] = promote(s.indexes[record.OwnerID], record.TraceID, model.MaxRecentFlights)

	return nil
}

// GetFlight returns the record for (ownerID, traceID) or ErrNotFound.
func (s *MemoryFlightStore) GetFlight(ctx context.Context, ownerID, traceID string) (*model.FlightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[ownerID][traceID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := *record
	return &copied, nil
}

// ListFlights walks the index in order, dropping entries whose record is
// missing.
func (s *MemoryFlightStore) ListFlights(ctx context.Context, ownerID string) ([]*model.FlightRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*model.FlightRecord, 0, len(s.indexes[ownerID]))
	for _, traceID := range s.indexes[ownerID] {
		if record, ok := s.records[ownerID][traceID]; ok {
			copied := *record
			records = append(records, &copied)
		}
	}

	return records, nil
}

// DeleteFlight removes the record and its index entry.
func (s *MemoryFlightStore) DeleteFlight(ctx context.Context, ownerID, traceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.records[ownerID][traceID]
	delete(s.records[ownerID], traceID)
	s.indexes[ownerID] = remove(s.indexes[ownerID], traceID)

	if !exists {
		return ErrNotFound
	}

	return nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryFlightStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryFlightStore) Close() {}

// DropRecord removes a record without touching the index. Test hook for the
// stale-index scenario a crash between the record write and index update
// can produce.
func (s *MemoryFlightStore) DropRecord(ownerID, traceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[ownerID], traceID)
}
