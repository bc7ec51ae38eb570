// Package auth resolves bearer credentials to user identities against the
// external identity service. The service itself is a consumed collaborator:
// this package only needs "verify token, get user id or a rejection".
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/skyward/flighttrack/internal/store"
)

// ErrUnauthenticated is returned when a credential is missing, malformed,
// or rejected by the identity service. It is never retried.
var ErrUnauthenticated = errors.New("unauthenticated")

// Verifier resolves a bearer token to a stable user id. Every flight
// operation is scoped to the returned id; an owner id is never accepted
// from request input.
type Verifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// HTTPVerifier verifies tokens against the identity service's user-info
// endpoint with a bounded timeout.
type HTTPVerifier struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPVerifier creates a verifier calling the identity service at
// endpoint (the full user-info URL, e.g. https://id.example.com/auth/v1/user).
func NewHTTPVerifier(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPVerifier {
	return &HTTPVerifier{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Verify calls the identity service with the bearer token. A 401/403 maps
// to ErrUnauthenticated; transport failures are wrapped and surfaced.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build identity request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}

	var user struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", fmt.Errorf("failed to decode identity response: %w", err)
	}
	if user.ID == "" {
		v.logger.Warn("identity service returned empty user id")
		return "", ErrUnauthenticated
	}

	return user.ID, nil
}

// CachingVerifier wraps a Verifier with a TTL cache of token to user id.
// Only successful verifications are cached; rejections always re-check.
type CachingVerifier struct {
	inner Verifier
	cache store.Cache
	ttl   time.Duration
}

// NewCachingVerifier creates a caching wrapper around inner.
func NewCachingVerifier(inner Verifier, cache store.Cache, ttl time.Duration) *CachingVerifier {
	return &CachingVerifier{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

// Verify returns the cached user id for the token, falling through to the
// inner verifier on a miss.
func (v *CachingVerifier) Verify(ctx context.Context, token string) (string, error) {
	if userID, err := v.cache.Get(ctx, token); err == nil {
		return userID, nil
	}

	userID, err := v.inner.Verify(ctx, token)
	if err != nil {
		return "", err
	}

	// Cache failures only cost a future round trip.
	_ = v.cache.Set(ctx, token, userID, v.ttl)

	return userID, nil
}
