package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"fast-swap/pkg/metrics"
)

const defaultTimeout = 30 * time.Second

// ErrNotConfigured is returned when a client is missing its credentials
var ErrNotConfigured = errors.New("upstream not configured")

// UpstreamError is a non-2xx answer from an upstream service
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// StatusOf returns the upstream status carried by err, or fallback
func StatusOf(err error, fallback int) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode > 0 {
		return upstream.StatusCode
	}
	return fallback
}

// httpDoer issues requests for a single upstream service
type httpDoer struct {
	service string
	client  *http.Client
	logger  *zap.Logger
}

func newHTTPDoer(service string, logger *zap.Logger) httpDoer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpDoer{
		service: service,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger.With(zap.String("upstream", service)),
	}
}

// do sends the request and returns the body of a 2xx response. Any other
// status becomes an *UpstreamError.
func (d httpDoer) do(ctx context.Context, method, url string, headers map[string]string, payload interface{}) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal %s request: %w", d.service, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create %s request: %w", d.service, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(d.service, "error", time.Since(start))
		return nil, 0, fmt.Errorf("failed to call %s: %w", d.service, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveUpstream(d.service, "error", time.Since(start))
		return nil, resp.StatusCode, fmt.Errorf("failed to read %s response: %w", d.service, err)
	}
	metrics.ObserveUpstream(d.service, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.logger.Warn("upstream error",
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(respBody), 512)))
		return respBody, resp.StatusCode, &UpstreamError{
			Service:    d.service,
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
		}
	}

	return respBody, resp.StatusCode, nil
}

func (d httpDoer) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	body, _, err := d.do(ctx, http.MethodGet, url, headers, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", d.service, err)
	}
	return nil
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
