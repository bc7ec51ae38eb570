// Package model defines the tracked-flight data types shared across the service.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxRecentFlights is the per-user cap on the recency index. Saving beyond
// the cap evicts the least recently saved trace id from List results; the
// underlying record is still reachable by id.
const MaxRecentFlights = 50

// ErrValidation is returned when a save payload fails decoding.
var ErrValidation = errors.New("validation failed")

// FlightRecord is one saved prediction result. The payload is opaque to the
// store: it is written and returned byte-for-byte, never interpreted beyond
// extracting the trace id.
type FlightRecord struct {
	OwnerID   string          `json:"owner_id"`
	TraceID   string          `json:"trace_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// DecodeFlightRecord validates a raw save payload and extracts its trace id.
// The input must be a JSON object carrying a non-empty "trace_id" string;
// all other fields pass through untouched.
func DecodeFlightRecord(raw []byte) (*FlightRecord, error) {
	var envelope struct {
		TraceID *string `json:"trace_id"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object: %v", ErrValidation, err)
	}
	if envelope.TraceID == nil || *envelope.TraceID == "" {
		return nil, fmt.Errorf("%w: trace_id is required", ErrValidation)
	}

	return &FlightRecord{
		TraceID: *envelope.TraceID,
		Payload: json.RawMessage(raw),
	}, nil
}
