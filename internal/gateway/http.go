package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lazypower/starfield/internal/graph"
)

const (
	// DefaultServerURL is where `starfield serve` listens by default.
	DefaultServerURL = "http://127.0.0.1:37790"
	httpTimeout      = 5 * time.Second
	// DefaultRateLimit caps requests per second to the service.
	DefaultRateLimit = 5.0
)

// HTTP talks to a starfield service.
type HTTP struct {
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	serverURL string
	log       *zap.Logger
}

// HTTPOption configures an HTTP gateway.
type HTTPOption func(*HTTP)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(h *HTTP) { h.http = hc }
}

// WithRateLimit sets the request rate. Zero or less disables limiting.
func WithRateLimit(perSecond float64) HTTPOption {
	return func(h *HTTP) {
		if perSecond <= 0 {
			h.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithLogger sets the logger for breaker state changes.
func WithLogger(l *zap.Logger) HTTPOption {
	return func(h *HTTP) { h.log = l }
}

// WithBreaker overrides the circuit breaker trip threshold and open
// timeout.
func WithBreaker(consecutiveFailures uint32, openFor time.Duration) HTTPOption {
	return func(h *HTTP) { h.breaker = h.newBreaker(consecutiveFailures, openFor) }
}

// NewHTTP creates a gateway for the service at serverURL. An empty URL uses
// DefaultServerURL.
func NewHTTP(serverURL string, opts ...HTTPOption) *HTTP {
	if serverURL == "" {
		serverURL = DefaultServerURL
	}
	h := &HTTP{
		http:      &http.Client{Timeout: httpTimeout},
		limiter:   rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		serverURL: strings.TrimRight(serverURL, "/"),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.breaker == nil {
		h.breaker = h.newBreaker(3, 30*time.Second)
	}
	return h
}

func (h *HTTP) newBreaker(failures uint32, openFor time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "starfield-http",
		Timeout: openFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// Validation failures are the caller's fault, not the service's.
		IsSuccessful: func(err error) bool {
			return err == nil || IsValidation(err)
		},
	})
}

// FetchGraph implements Gateway.
func (h *HTTP) FetchGraph(ctx context.Context, userID string) (graph.Snapshot, error) {
	data, err := h.do(ctx, http.MethodGet, "/api/graph?user_id="+url.QueryEscape(userID), nil)
	if err != nil {
		return graph.Snapshot{}, err
	}
	var snap graph.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return graph.Snapshot{}, fmt.Errorf("decode graph: %w", err)
	}
	return snap, nil
}

// UploadGraphFragment implements Gateway.
func (h *HTTP) UploadGraphFragment(ctx context.Context, userID string, f Fragment) error {
	body, err := json.Marshal(uploadRequest{UserID: userID, Nodes: nonNil(f.Nodes), Edges: nonNil(f.Edges)})
	if err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	_, err = h.do(ctx, http.MethodPost, "/api/graph/upload", body)
	return err
}

// Healthy checks if the service is reachable.
func (h *HTTP) Healthy(ctx context.Context) bool {
	_, err := h.do(ctx, http.MethodGet, "/api/health", nil)
	return err == nil
}

type uploadRequest struct {
	UserID string         `json:"user_id"`
	Nodes  []FragmentNode `json:"nodes"`
	Edges  []FragmentEdge `json:"edges"`
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (h *HTTP) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	out, err := h.breaker.Execute(func() (interface{}, error) {
		return h.roundTrip(ctx, method, path, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (h *HTTP) roundTrip(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, h.serverURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %v", method, path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w: %v", path, ErrUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, invalid(errorMessage(data))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s %s: %w: status %d: %s", method, path, ErrUnavailable, resp.StatusCode, errorMessage(data))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, errorMessage(data))
	}
	return data, nil
}

// errorMessage pulls "error" out of a JSON error body, or returns the body.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
