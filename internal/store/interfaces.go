package store

import (
	"context"
	"errors"
	"time"

	"github.com/skyward/flighttrack/internal/model"
)

// ErrNotFound is returned when no record exists for the requested key.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a concurrent write race is detected by a
// backend with optimistic concurrency. Callers may retry.
var ErrConflict = errors.New("write conflict")

// ErrUnavailable is returned for transient backend failures (connection
// loss, timeout). Callers may retry with backoff.
var ErrUnavailable = errors.New("backend unavailable")

// FlightStore is the persistence contract for tracked flights. Every
// operation is scoped to an owner id; no implementation may leak records
// across owners. The two production implementations (Postgres, Redis) and
// the in-memory test implementation are interchangeable.
type FlightStore interface {
	// SaveFlight inserts the record or overwrites the existing one for
	// (OwnerID, TraceID), refreshing UpdatedAt, and moves the trace id to
	// the front of the owner's recency index.
	SaveFlight(ctx context.Context, record *model.FlightRecord) error

	// GetFlight returns the record for (ownerID, traceID) or ErrNotFound.
	// Lookup does not consult the recency index: a record evicted from the
	// index is still retrievable by id.
	GetFlight(ctx context.Context, ownerID, traceID string) (*model.FlightRecord, error)

	// ListFlights returns the owner's records most-recent-first, at most
	// model.MaxRecentFlights entries. Index entries whose backing record is
	// missing are dropped, never surfaced as an error.
	ListFlights(ctx context.Context, ownerID string) ([]*model.FlightRecord, error)

	// DeleteFlight removes the record and its index entry. Returns
	// ErrNotFound if no record exists; a stale index entry alone does not
	// count as existence.
	DeleteFlight(ctx context.Context, ownerID, traceID string) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}

// Cache is a small TTL cache used for token verification results.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
