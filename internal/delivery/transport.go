package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"navmenus/pkg/platform/circuit"
	"navmenus/pkg/platform/sentinel"
)

const (
	defaultBaseURL   = "https://deliver.kontent.ai"
	previewBaseURL   = "https://preview-deliver.kontent.ai"
	maxResponseBytes = 16 << 20
)

// HTTPTransport calls the delivery API over HTTP.
type HTTPTransport struct {
	baseURL    string
	projectID  string
	previewKey string
	httpClient *http.Client
	breaker    *circuit.Breaker
	logger     *slog.Logger
}

type TransportOption func(*HTTPTransport)

func WithBaseURL(u string) TransportOption {
	return func(t *HTTPTransport) {
		if u != "" {
			t.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithPreviewAPIKey switches to the preview endpoint and authenticates with key.
func WithPreviewAPIKey(key string) TransportOption {
	return func(t *HTTPTransport) {
		if key == "" {
			return
		}
		t.previewKey = key
		if t.baseURL == defaultBaseURL {
			t.baseURL = previewBaseURL
		}
	}
}

func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		t.httpClient = c
	}
}

func WithTimeout(d time.Duration) TransportOption {
	return func(t *HTTPTransport) {
		if d > 0 {
			t.httpClient = &http.Client{Timeout: d}
		}
	}
}

func WithBreaker(b *circuit.Breaker) TransportOption {
	return func(t *HTTPTransport) {
		t.breaker = b
	}
}

func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *HTTPTransport) {
		t.logger = logger
	}
}

// NewHTTPTransport builds a transport for the given project.
func NewHTTPTransport(projectID string, opts ...TransportOption) (*HTTPTransport, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("project id is required")
	}
	t := &HTTPTransport{
		baseURL:    defaultBaseURL,
		projectID:  projectID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		breaker:    circuit.New("delivery-api"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Breaker exposes the circuit so callers can report its state.
func (t *HTTPTransport) Breaker() *circuit.Breaker {
	return t.breaker
}

func (t *HTTPTransport) Fetch(ctx context.Context, q Query) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/items", t.baseURL, t.projectID)
	if encoded := q.Values().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if t.previewKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.previewKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.recordFailure(ctx, err)
		return nil, fmt.Errorf("%w: delivery request: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		t.recordFailure(ctx, err)
		return nil, fmt.Errorf("%w: read delivery response: %v", sentinel.ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		t.recordSuccess(ctx)
		return nil, fmt.Errorf("%w: delivery api returned 404", sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		err := fmt.Errorf("delivery api returned %d", resp.StatusCode)
		t.recordFailure(ctx, err)
		return nil, fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	case resp.StatusCode >= 300:
		t.recordSuccess(ctx)
		return nil, fmt.Errorf("%w: delivery api returned %d: %s", sentinel.ErrBadResponse, resp.StatusCode, snippet(body))
	}

	t.recordSuccess(ctx)
	return body, nil
}

func (t *HTTPTransport) recordFailure(ctx context.Context, err error) {
	if t.breaker == nil {
		return
	}
	_, change := t.breaker.RecordFailure()
	if change.Opened && t.logger != nil {
		t.logger.WarnContext(ctx, "delivery circuit opened",
			"breaker", t.breaker.Name(),
			"error", err,
		)
	}
}

func (t *HTTPTransport) recordSuccess(ctx context.Context) {
	if t.breaker == nil {
		return
	}
	_, change := t.breaker.RecordSuccess()
	if change.Closed && t.logger != nil {
		t.logger.InfoContext(ctx, "delivery circuit closed", "breaker", t.breaker.Name())
	}
}

func snippet(body []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
