package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFlightRecord(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		traceID string
	}{
		{
			name:    "valid payload",
			raw:     `{"trace_id":"T1","prediction":{"delay_probability":0.42}}`,
			traceID: "T1",
		},
		{
			name:    "extra fields pass through",
			raw:     `{"trace_id":"T2","flight":{"flight_number":"BA117"},"unknown_field":[1,2,3]}`,
			traceID: "T2",
		},
		{
			name:    "missing trace_id",
			raw:     `{"prediction":{"delay_probability":0.42}}`,
			wantErr: true,
		},
		{
			name:    "empty trace_id",
			raw:     `{"trace_id":""}`,
			wantErr: true,
		},
		{
			name:    "null trace_id",
			raw:     `{"trace_id":null}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			raw:     `{invalid}`,
			wantErr: true,
		},
		{
			name:    "not an object",
			raw:     `[1,2,3]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := DecodeFlightRecord([]byte(tt.raw))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.traceID, record.TraceID)
			assert.Equal(t, json.RawMessage(tt.raw), record.Payload)
		})
	}
}

func TestDecodeFlightRecord_PayloadUntouched(t *testing.T) {
	raw := `{"trace_id":"T1","origin_weather":{"taf_min_vis_km":1.5}}`
	record, err := DecodeFlightRecord([]byte(raw))
	require.NoError(t, err)

	// The payload is cargo: stored byte-for-byte, not re-serialized.
	assert.JSONEq(t, raw, string(record.Payload))
}
