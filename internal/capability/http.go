package capability

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/dossiersim/internal/model"
)

const (
	// DefaultHTTPTimeout is the request timeout used when none is configured.
	DefaultHTTPTimeout = 30 * time.Second

	// maxResponseSize caps how much of a live response body is read.
	maxResponseSize = 4 << 20
)

// HTTPAdapter invokes a capability served by a remote endpoint.
// The input is POSTed as JSON; the response is either an envelope-shaped
// object (with an "output" record) or a bare JSON value. Results default to
// core provenance.
type HTTPAdapter struct {
	id       string
	endpoint string
	token    string
	client   *http.Client
	logger   *slog.Logger
}

// HTTPOption configures an HTTPAdapter.
type HTTPOption func(*HTTPAdapter)

// WithToken sets the bearer token sent with every request.
func WithToken(token string) HTTPOption {
	return func(a *HTTPAdapter) {
		a.token = token
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(a *HTTPAdapter) {
		a.client = c
	}
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(a *HTTPAdapter) {
		if d > 0 {
			a.client = &http.Client{Timeout: d}
		}
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(logger *slog.Logger) HTTPOption {
	return func(a *HTTPAdapter) {
		a.logger = logger
	}
}

// NewHTTPAdapter creates a live adapter for id that posts to endpoint.
func NewHTTPAdapter(id, endpoint string, opts ...HTTPOption) *HTTPAdapter {
	a := &HTTPAdapter{
		id:       id,
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// ID returns the capability id.
func (a *HTTPAdapter) ID() string {
	return a.id
}

// Endpoint returns the URL requests are sent to.
func (a *HTTPAdapter) Endpoint() string {
	return a.endpoint
}

// Invoke posts input to the endpoint and decodes the response.
func (a *HTTPAdapter) Invoke(ctx context.Context, input any) (any, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}

	a.logger.Debug("invoking live capability",
		"capability", a.id,
		"endpoint", a.endpoint,
		"bearer", a.token != "",
	)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	return decodeLiveResponse(input, data)
}

// decodeLiveResponse turns a response body into an envelope. A top-level
// object with an "output" record is read as an envelope; any other body
// becomes the output of a core envelope.
func decodeLiveResponse(input any, data []byte) (any, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err == nil {
		if raw, ok := probe["output"]; ok && len(raw) > 0 && raw[0] == '{' {
			var env model.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				return nil, fmt.Errorf("failed to decode envelope: %w", err)
			}
			if env.Input == nil {
				env.Input = input
			}
			if env.Provenance == "" {
				env.Provenance = model.ProvenanceCore
			}
			return env, nil
		}
	}

	var bare any
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	output, ok := bare.(map[string]any)
	if !ok {
		output = map[string]any{"value": bare}
	}
	return model.Envelope{
		Input:           input,
		Output:          output,
		ProcessingSteps: []model.ProcessingStep{},
		Insights:        []string{},
		Provenance:      model.ProvenanceCore,
	}, nil
}
