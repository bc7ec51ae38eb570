// Package handler provides HTTP request handlers for the flight tracking service.
package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/client"
	apierrors "github.com/skyward/flighttrack/internal/errors"
	"github.com/skyward/flighttrack/internal/middleware"
	"github.com/skyward/flighttrack/internal/service"
)

// maxPayloadBytes bounds save request bodies.
const maxPayloadBytes = 1 << 20

// Handlers contains all HTTP handlers and their dependencies.
type Handlers struct {
	flights      *service.FlightService
	predictions  *client.PredictionClient
	errorHandler *apierrors.Handler
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(
	flights *service.FlightService,
	predictions *client.PredictionClient,
	errorHandler *apierrors.Handler,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		flights:      flights,
		predictions:  predictions,
		errorHandler: errorHandler,
		logger:       logger,
	}
}

// SaveFlight handles POST /v1/flights requests. The body is the full
// prediction payload; the only field inspected is trace_id.
func (h *Handlers) SaveFlight(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")
	ownerID := middleware.UserID(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		h.errorHandler.WriteValidationError(w, "failed to read request body", requestID)
		return
	}

	record, err := h.flights.Save(r.Context(), ownerID, body)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"trace_id": record.TraceID,
	})
}

// ListFlights handles GET /v1/flights requests, returning the owner's
// saved payloads most-recent-first.
func (h *Handlers) ListFlights(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())

	records, err := h.flights.List(r.Context(), ownerID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"flights": service.Payloads(records),
	})
}

// GetFlight handles GET /v1/flights/{trace_id} requests.
func (h *Handlers) GetFlight(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	traceID := mux.Vars(r)["trace_id"]

	record, err := h.flights.Get(r.Context(), ownerID, traceID)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"flight": record.Payload,
	})
}

// DeleteFlight handles DELETE /v1/flights/{trace_id} requests.
func (h *Handlers) DeleteFlight(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.UserID(r.Context())
	traceID := mux.Vars(r)["trace_id"]

	if err := h.flights.Delete(r.Context(), ownerID, traceID); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
	})
}

// Predict handles GET /v1/predict requests, proxying the external
// prediction service and returning its payload untouched.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get("X-Request-ID")

	flightNumber := r.URL.Query().Get("flight_number")
	date := r.URL.Query().Get("date")
	if flightNumber == "" {
		h.errorHandler.WriteValidationError(w, "flight_number query parameter is required", requestID)
		return
	}
	if date == "" {
		h.errorHandler.WriteValidationError(w, "date query parameter is required", requestID)
		return
	}

	payload, err := h.predictions.Predict(r.Context(), flightNumber, date)
	if err != nil {
		h.errorHandler.WriteErrorResponse(w, http.StatusBadGateway, apierrors.ErrorCodeServiceDown, err.Error(), requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// writeJSONResponse writes a JSON response with the given status code.
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
