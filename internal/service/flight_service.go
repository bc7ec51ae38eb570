// Package service implements the tracked-flight operations on top of a
// pluggable storage backend.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/metrics"
	"github.com/skyward/flighttrack/internal/model"
	"github.com/skyward/flighttrack/internal/store"
)

// FlightService coordinates payload decoding and the flight store. It holds
// no state of its own: every call is scoped to the owner id passed in, which
// callers derive from the verified credential.
type FlightService struct {
	store   store.FlightStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewFlightService creates a flight service over the given backend.
func NewFlightService(flightStore store.FlightStore, m *metrics.Metrics, logger *zap.Logger) *FlightService {
	return &FlightService{
		store:   flightStore,
		metrics: m,
		logger:  logger,
	}
}

// Save decodes and persists a prediction payload for the owner. A save for
// an already-tracked trace id overwrites the payload and moves it to the
// front of the owner's history; it never creates a duplicate. A write
// conflict from the backend is retried once before being surfaced.
func (s *FlightService) Save(ctx context.Context, ownerID string, raw []byte) (*model.FlightRecord, error) {
	record, err := model.DecodeFlightRecord(raw)
	if err != nil {
		return nil, err
	}
	record.OwnerID = ownerID

	start := time.Now()
	err = s.store.SaveFlight(ctx, record)
	if errors.Is(err, store.ErrConflict) {
		s.logger.Warn("save conflict, retrying once",
			zap.String("owner_id", ownerID),
			zap.String("trace_id", record.TraceID))
		err = s.store.SaveFlight(ctx, record)
	}
	s.observe("save", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to save flight %s: %w", record.TraceID, err)
	}

	s.logger.Debug("flight saved",
		zap.String("owner_id", ownerID),
		zap.String("trace_id", record.TraceID))

	return record, nil
}

// List returns the owner's tracked flights, most recently saved first, at
// most model.MaxRecentFlights entries.
func (s *FlightService) List(ctx context.Context, ownerID string) ([]*model.FlightRecord, error) {
	start := time.Now()
	records, err := s.store.ListFlights(ctx, ownerID)
	s.observe("list", start, err)

	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}

	return records, nil
}

// Get returns a single tracked flight by trace id. The lookup is direct:
// a record evicted from the recency index is still retrievable here.
func (s *FlightService) Get(ctx context.Context, ownerID, traceID string) (*model.FlightRecord, error) {
	start := time.Now()
	record, err := s.store.GetFlight(ctx, ownerID, traceID)
	s.observe("get", start, err)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get flight %s: %w", traceID, err)
	}

	return record, nil
}

// Delete removes a tracked flight and its history entry.
func (s *FlightService) Delete(ctx context.Context, ownerID, traceID string) error {
	start := time.Now()
	err := s.store.DeleteFlight(ctx, ownerID, traceID)
	s.observe("delete", start, err)

	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete flight %s: %w", traceID, err)
	}

	s.logger.Debug("flight deleted",
		zap.String("owner_id", ownerID),
		zap.String("trace_id", traceID))

	return nil
}

// Payloads extracts the raw payloads from a record list, preserving order.
func Payloads(records []*model.FlightRecord) []json.RawMessage {
	payloads := make([]json.RawMessage, 0, len(records))
	for _, record := range records {
		payloads = append(payloads, record.Payload)
	}
	return payloads
}

func (s *FlightService) observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(operation, status, time.Since(start))
	}
}
