package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/model"
)

// PostgresFlightStore implements FlightStore on a single flights table keyed
// by (owner_id, trace_id). Recency ordering comes from the updated_at column;
// there is no separate index structure to maintain.
type PostgresFlightStore struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

const flightsSchema = `
	CREATE TABLE IF NOT EXISTS flights (
		owner_id   TEXT        NOT NULL,
		trace_id   TEXT        NOT NULL,
		payload    JSONB       NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (owner_id, trace_id)
	);
	CREATE INDEX IF NOT EXISTS flights_owner_recency
		ON flights (owner_id, updated_at DESC);
`

// NewPostgresFlightStore creates a Postgres-backed flight store and ensures
// the schema exists.
func NewPostgresFlightStore(
	host string,
	port int,
	database, user, password string,
	maxConns, minConns int,
	logger *zap.Logger,
) (FlightStore, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s pool_max_conns=%d pool_min_conns=%d",
		host, port, database, user, password, maxConns, minConns,
	)

	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(context.Background(), flightsSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure flights schema: %w", err)
	}

	return &PostgresFlightStore{
		pool:   pool,
		logger: logger,
	}, nil
}

// SaveFlight upserts the record. The native ON CONFLICT clause makes the
// existence-check-and-write a single atomic statement, so concurrent saves
// of the same key cannot lose an update. created_at is preserved on
// overwrite; updated_at always refreshes.
func (s *PostgresFlightStore) SaveFlight(ctx context.Context, record *model.FlightRecord) error {
	query := `
		INSERT INTO flights (owner_id, trace_id, payload, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (owner_id, trace_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	_, err := s.pool.Exec(ctx, query, record.OwnerID, record.TraceID, []byte(record.Payload))
	if err != nil {
		return fmt.Errorf("%w: save flight: %v", ErrUnavailable, err)
	}

	return nil
}

// GetFlight retrieves one record by key.
func (s *PostgresFlightStore) GetFlight(ctx context.Context, ownerID, traceID string) (*model.FlightRecord, error) {
	query := `
		SELECT owner_id, trace_id, payload, created_at, updated_at
		FROM flights
		WHERE owner_id = $1 AND trace_id = $2
	`

	var record model.FlightRecord
	err := s.pool.QueryRow(ctx, query, ownerID, traceID).Scan(
		&record.OwnerID,
		&record.TraceID,
		&record.Payload,
		&record.CreatedAt,
		&record.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get flight: %v", ErrUnavailable, err)
	}

	return &record, nil
}

// ListFlights returns the owner's records in recency order. The LIMIT bounds
// discoverability, not existence: rows beyond the cap stay retrievable by id.
func (s *PostgresFlightStore) ListFlights(ctx context.Context, ownerID string) ([]*model.FlightRecord, error) {
	query := `
		SELECT owner_id, trace_id, payload, created_at, updated_at
		FROM flights
		WHERE owner_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, ownerID, model.MaxRecentFlights)
	if err != nil {
		return nil, fmt.Errorf("%w: list flights: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	records := make([]*model.FlightRecord, 0)
	for rows.Next() {
		var record model.FlightRecord
		if err := rows.Scan(
			&record.OwnerID,
			&record.TraceID,
			&record.Payload,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan flight row: %v", ErrUnavailable, err)
		}
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list flights: %v", ErrUnavailable, err)
	}

	return records, nil
}

// DeleteFlight removes one record. ErrNotFound when no row matched.
func (s *PostgresFlightStore) DeleteFlight(ctx context.Context, ownerID, traceID string) error {
	query := `DELETE FROM flights WHERE owner_id = $1 AND trace_id = $2`

	result, err := s.pool.Exec(ctx, query, ownerID, traceID)
	if err != nil {
		return fmt.Errorf("%w: delete flight: %v", ErrUnavailable, err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Ping checks the database connection.
func (s *PostgresFlightStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresFlightStore) Close() {
	s.pool.Close()
}
