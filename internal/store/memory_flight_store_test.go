package store

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyward/flighttrack/internal/model"
)

func saveFlight(t *testing.T, s FlightStore, ownerID, traceID string) {
	t.Helper()
	payload := fmt.Sprintf(`{"trace_id":%q,"prediction":{"delay_probability":0.5}}`, traceID)
	err := s.SaveFlight(context.Background(), &model.FlightRecord{
		OwnerID: ownerID,
		TraceID: traceID,
		Payload: json.RawMessage(payload),
	})
	require.NoError(t, err)
}

func listTraceIDs(t *testing.T, s FlightStore, ownerID string) []string {
	t.Helper()
	records, err := s.ListFlights(context.Background(), ownerID)
	require.NoError(t, err)
	ids := make([]string, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.TraceID)
	}
	return ids
}

func TestMemoryFlightStore_SaveOverwritesNeverDuplicates(t *testing.T) {
	s := NewMemoryFlightStore()
	ctx := context.Background()

	first := json.RawMessage(`{"trace_id":"T1","prediction":{"delay_probability":0.1}}`)
	second := json.RawMessage(`{"trace_id":"T1","prediction":{"delay_probability":0.9}}`)

	require.NoError(t, s.SaveFlight(ctx, &model.FlightRecord{OwnerID: "u1", TraceID: "T1", Payload: first}))
	require.NoError(t, s.SaveFlight(ctx, &model.FlightRecord{OwnerID: "u1", TraceID: "T1", Payload: second}))

	assert.Equal(t, []string{"T1"}, listTraceIDs(t, s, "u1"))

	record, err := s.GetFlight(ctx, "u1", "T1")
	require.NoError(t, err)
	assert.Equal(t, second, record.Payload)
}

func TestMemoryFlightStore_CreatedAtPreservedOnOverwrite(t *testing.T) {
	s := NewMemoryFlightStore()
	ctx := context.Background()

	saveFlight(t, s, "u1", "T1")
	original, err := s.GetFlight(ctx, "u1", "T1")
	require.NoError(t, err)

	saveFlight(t, s, "u1", "T1")
	overwritten, err := s.GetFlight(ctx, "u1", "T1")
	require.NoError(t, err)

	assert.Equal(t, original.CreatedAt, overwritten.CreatedAt)
	assert.False(t, overwritten.UpdatedAt.Before(original.UpdatedAt))
}

func TestMemoryFlightStore_RecencyOrdering(t *testing.T) {
	s := NewMemoryFlightStore()

	saveFlight(t, s, "u1", "A")
	saveFlight(t, s, "u1", "B")
	saveFlight(t, s, "u1", "C")

	assert.Equal(t, []string{"C", "B", "A"}, listTraceIDs(t, s, "u1"))
}

func TestMemoryFlightStore_MoveToFront(t *testing.T) {
	s := NewMemoryFlightStore()

	saveFlight(t, s, "u1", "A")
	saveFlight(t, s, "u1", "B")
	saveFlight(t, s, "u1", "C")
	saveFlight(t, s, "u1", "A")

	assert.Equal(t, []string{"A", "C", "B"}, listTraceIDs(t, s, "u1"))
}

func TestMemoryFlightStore_BoundedEviction(t *testing.T) {
	s := NewMemoryFlightStore()
	ctx := context.Background()

	for i := 1; i <= model.MaxRecentFlights+1; i++ {
		saveFlight(t, s, "u1", fmt.Sprintf("T%d", i))
	}

	ids := listTraceIDs(t, s, "u1")
	assert.Len(t, ids, model.MaxRecentFlights)
	assert.NotContains(t, ids, "T1")
	assert.Equal(t, fmt.Sprintf("T%d", model.MaxRecentFlights+1), ids[0])

	// Eviction only affects discoverability, never the record itself.
	record, err := s.GetFlight(ctx, "u1", "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", record.TraceID)
}

func TestMemoryFlightStore_DeleteIdempotentOnIndex(t *testing.T) {
	s := NewMemoryFlightStore()
	ctx := context.Background()

	saveFlight(t, s, "u1", "T1")
	saveFlight(t, s, "u1", "T2")

	require.NoError(t, s.DeleteFlight(ctx, "u1", "T1"))
	assert.Equal(t, []string{"T2"}, listTraceIDs(t, s, "u1"))

	// Second delete reports NotFound and leaves the index intact.
	err := s.DeleteFlight(ctx, "u1", "T1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"T2"}, listTraceIDs(t, s, "u1"))

	_, err = s.GetFlight(ctx, "u1", "T1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFlightStore_DeleteNonexistent(t *testing.T) {
	s := NewMemoryFlightStore()
	err := s.DeleteFlight(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryFlightStore_OwnerIsolation(t *testing.T) {
	s := NewMemoryFlightStore()
	ctx := context.Background()

	saveFlight(t, s, "u1", "T1")

	_, err := s.GetFlight(ctx, "u2", "T1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, listTraceIDs(t, s, "u2"))

	// Deleting under the wrong owner must not touch u1's record.
	err = s.DeleteFlight(ctx, "u2", "T1")
	assert.ErrorIs(t, err, ErrNotFound)

	record, err := s.GetFlight(ctx, "u1", "T1")
	require.NoError(t, err)
	assert.Equal(t, "T1", record.TraceID)
}

func TestMemoryFlightStore_ListToleratesStaleIndexEntries(t *testing.T) {
	s := NewMemoryFlightStore()

	saveFlight(t, s, "u1", "T1")
	saveFlight(t, s, "u1", "T2")
	saveFlight(t, s, "u1", "T3")

	// Simulate the crash window where a record vanished but its index
	// entry survived.
	s.DropRecord("u1", "T2")

	assert.Equal(t, []string{"T3", "T1"}, listTraceIDs(t, s, "u1"))
}

func TestMemoryFlightStore_ListEmptyOwner(t *testing.T) {
	s := NewMemoryFlightStore()
	records, err := s.ListFlights(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}
