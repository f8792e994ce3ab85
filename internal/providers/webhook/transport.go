// Package webhook submits units of work to the external automation
// workflows. A submission is tried against the upstream endpoint directly
// and, when that is blocked or broken, retried once through the same-origin
// proxy that forwards the payload unchanged.
package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"server/internal/domain"
	"server/internal/infra"
)

// Request is one logical submission. The body is encoded once so that the
// direct attempt and the proxy fallback send identical bytes.
type Request struct {
	Endpoint    string
	ProxyURL    string
	Body        []byte
	ContentType string
}

// RawResponse is the opaque reply relayed from whichever path answered.
type RawResponse struct {
	Body        []byte
	ContentType string
	StatusCode  int
}

// IsJSON reports whether the response declared a JSON content type.
func (r *RawResponse) IsJSON() bool {
	return strings.Contains(r.ContentType, "application/json")
}

// IsImage reports whether the response carries binary image data. Image
// responses bypass normalization entirely.
func (r *RawResponse) IsImage() bool {
	return strings.HasPrefix(r.ContentType, "image/")
}

// Transport performs one logical submission, failing only if both the
// direct path and the proxy path fail.
type Transport interface {
	Send(ctx context.Context, req Request) (*RawResponse, error)
}

// FallbackTransport is the single Transport implementation: direct call
// first, proxy second, never both in parallel so the upstream sees at most
// one side effect per attempt.
type FallbackTransport struct {
	client *http.Client
	logger infra.Logger
}

func NewFallbackTransport(client *http.Client, logger infra.Logger) *FallbackTransport {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &FallbackTransport{client: client, logger: logger}
}

// Send tries the direct endpoint, then the proxy. Cancellation is terminal:
// an aborted direct attempt must not trigger the fallback.
func (t *FallbackTransport) Send(ctx context.Context, req Request) (*RawResponse, error) {
	raw, err := t.post(ctx, req.Endpoint, req)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	t.logger.Warn().Err(err).Str("endpoint", req.Endpoint).Msg("webhook: direct call failed, retrying via proxy")

	if req.ProxyURL == "" {
		return nil, &domain.TransportError{Endpoint: req.Endpoint, StatusCode: statusOf(raw), Err: err}
	}
	raw, err = t.post(ctx, req.ProxyURL, req)
	if err == nil {
		return raw, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return nil, &domain.TransportError{Endpoint: req.Endpoint, StatusCode: statusOf(raw), Err: err}
}

// post performs a single round trip. It returns an error for network
// failures, non-2xx statuses, and bodies that fail to parse as the declared
// content type, so the caller can fall through to the proxy.
func (t *FallbackTransport) post(ctx context.Context, url string, req Request) (*RawResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("webhook: build request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook: %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webhook: read response: %w", err)
	}
	raw := &RawResponse{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, fmt.Errorf("webhook: %s: status %d", url, resp.StatusCode)
	}
	if raw.IsJSON() && !gjson.ValidBytes(body) {
		return raw, errors.New("webhook: body does not parse as declared application/json")
	}
	return raw, nil
}

func statusOf(raw *RawResponse) int {
	if raw == nil {
		return 0
	}
	return raw.StatusCode
}
