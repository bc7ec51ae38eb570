// Package client provides the HTTP client for the external prediction
// service. The delay model is a consumed collaborator: this client fetches
// a prediction payload and passes it through opaquely.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrPredictionUnavailable is returned when the prediction service cannot
// be reached or exceeds its bounded wait.
var ErrPredictionUnavailable = errors.New("prediction service unavailable")

// PredictionClient calls the model-serving API's predict endpoint.
type PredictionClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPredictionClient creates a prediction client. The timeout bounds every
// call; a slow model surfaces as ErrPredictionUnavailable, never a hang.
func NewPredictionClient(baseURL string, timeout time.Duration, logger *zap.Logger) *PredictionClient {
	return &PredictionClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Predict fetches the delay prediction payload for a flight number and
// date. The payload is returned as raw JSON; the caller stores or forwards
// it without interpreting its fields.
func (c *PredictionClient) Predict(ctx context.Context, flightNumber, date string) (json.RawMessage, error) {
	if flightNumber == "" {
		return nil, fmt.Errorf("flight_number is required")
	}
	if date == "" {
		return nil, fmt.Errorf("date is required")
	}

	endpoint, err := url.Parse(c.baseURL + "/predict")
	if err != nil {
		return nil, fmt.Errorf("invalid prediction service URL: %w", err)
	}
	query := endpoint.Query()
	query.Set("flight_number", flightNumber)
	query.Set("date", date)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build prediction request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("prediction request failed",
			zap.String("flight_number", flightNumber),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPredictionUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrPredictionUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prediction service returned status %d: %s", resp.StatusCode, string(body))
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("prediction service returned invalid JSON")
	}

	c.logger.Debug("prediction fetched",
		zap.String("flight_number", flightNumber),
		zap.String("date", date),
		zap.Duration("elapsed", time.Since(start)))

	return json.RawMessage(body), nil
}
