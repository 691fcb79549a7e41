// Package transport posts form-encoded requests to the relay API and keeps
// the outcome of the last request.
//
// Failures never reach the caller as errors: Request returns nil and the
// failure is available through LastError, the registered ErrorHandler, or
// the logger.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kart-io/clovertg/pkg/errors"
	"github.com/kart-io/clovertg/pkg/form"
	"github.com/kart-io/clovertg/pkg/logger"
	"github.com/kart-io/clovertg/pkg/observability"
)

// DefaultTimeout bounds every request.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is sent when no other user agent is configured.
const DefaultUserAgent = "clovertg-go/1.1"

// Result is the normalized answer of a successful request.
type Result struct {
	Status int `json:"status"`
	// Data is the decoded JSON body, or the raw body string when it is not JSON.
	Data any    `json:"data"`
	Path string `json:"path"`
}

// ErrorHandler receives failed requests in place of the default logging.
type ErrorHandler interface {
	HandleError(err *errors.RequestError, context map[string]any)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(err *errors.RequestError, context map[string]any)

// HandleError calls f(err, context).
func (f ErrorHandlerFunc) HandleError(err *errors.RequestError, context map[string]any) {
	f(err, context)
}

// Transport is bound to one base URL. It holds the result or error of the
// last request and is not safe for concurrent use.
type Transport struct {
	baseURL   string
	client    *http.Client
	timeout   time.Duration
	userAgent string
	logger    logger.Logger
	telemetry *observability.Provider
	handler   ErrorHandler

	lastResult *Result
	lastErr    *errors.RequestError
}

// Option configures a Transport.
type Option func(*Transport)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Transport) { t.client = c }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transport) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithLogger sets the logger used when no ErrorHandler is registered.
func WithLogger(l logger.Logger) Option {
	return func(t *Transport) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithTelemetry enables request spans and metrics.
func WithTelemetry(p *observability.Provider) Option {
	return func(t *Transport) { t.telemetry = p }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(t *Transport) { t.userAgent = ua }
}

// WithErrorHandler registers the error handler.
func WithErrorHandler(h ErrorHandler) Option {
	return func(t *Transport) { t.handler = h }
}

// New creates a transport for baseURL.
func New(baseURL string, opts ...Option) *Transport {
	t := &Transport{
		baseURL:   strings.TrimRight(baseURL, "/"),
		timeout:   DefaultTimeout,
		userAgent: DefaultUserAgent,
		logger:    logger.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.client == nil {
		if t.telemetry.Enabled() {
			t.client = t.telemetry.HTTPClient(t.timeout)
		} else {
			t.client = &http.Client{Timeout: t.timeout}
		}
	}
	return t
}

// BaseURL returns the base URL requests are sent to.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Request posts fields to path. It returns the Result on success and nil on
// failure; in both cases the outcome replaces the previous one.
func (t *Transport) Request(ctx context.Context, path string, fields map[string]any) *Result {
	t.ClearState()

	start := time.Now()
	ctx, span := t.telemetry.TraceRequest(ctx, path)
	defer span.End()

	result, reqErr := t.do(ctx, path, fields)
	if reqErr != nil {
		t.lastErr = reqErr
		t.telemetry.RecordFailure(ctx, span, path, string(reqErr.Kind), reqErr, time.Since(start))
		t.report(reqErr)
		return nil
	}

	t.lastResult = result
	t.telemetry.RecordSuccess(ctx, span, path, result.Status, time.Since(start))
	t.logger.Debug("relay request sent", "path", path, "status", result.Status, "duration", time.Since(start))
	return result
}

func (t *Transport) do(ctx context.Context, path string, fields map[string]any) (result *Result, reqErr *errors.RequestError) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			reqErr = errors.Wrap(fmt.Errorf("panic during request: %v", r), errors.KindUnknownError, path)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(path), strings.NewReader(form.Encode(fields)))
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to create request: %w", err), errors.KindUnknownError, path)
	}
	req.Header.Set("Content-Type", form.ContentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindNetworkError, path)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("failed to read response: %w", err), errors.KindNetworkError, path).
			WithResponse(resp.StatusCode, nil)
	}
	data := decodeBody(raw)

	switch {
	case resp.StatusCode >= 500:
		return nil, errors.New(errors.KindNetworkError, path, statusMessage(path, resp)).
			WithResponse(resp.StatusCode, data)
	case resp.StatusCode >= 400:
		return nil, errors.New(errors.KindClientError, path, statusMessage(path, resp)).
			WithResponse(resp.StatusCode, data)
	}

	return &Result{Status: resp.StatusCode, Data: data, Path: path}, nil
}

func (t *Transport) endpoint(path string) string {
	return t.baseURL + "/" + strings.TrimLeft(path, "/")
}

func (t *Transport) report(err *errors.RequestError) {
	ctx := make(map[string]any, len(err.Context)+1)
	for k, v := range err.Context {
		ctx[k] = v
	}
	if err.Response != nil {
		ctx["status"] = err.Response.Status
	}

	if t.handler != nil {
		t.handler.HandleError(err, ctx)
		return
	}
	t.logger.Error("relay request failed",
		"path", err.Path(),
		"kind", string(err.Kind),
		"code", err.Code,
		"error", err.Message,
	)
}

func statusMessage(path string, resp *http.Response) string {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return fmt.Sprintf("POST %s: %s", path, status)
}

// decodeBody returns the JSON value of raw, or raw as a string.
func decodeBody(raw []byte) any {
	var v any
	if len(raw) > 0 && json.Unmarshal(raw, &v) == nil {
		return v
	}
	return string(raw)
}

// OnError registers the error handler. A nil handler restores logging.
func (t *Transport) OnError(h ErrorHandler) {
	t.handler = h
}

// LastResult returns the result of the last request, or nil.
func (t *Transport) LastResult() *Result {
	return t.lastResult
}

// LastError returns the error of the last request, or nil.
func (t *Transport) LastError() *errors.RequestError {
	return t.lastErr
}

// IsSuccess reports whether the last request succeeded.
func (t *Transport) IsSuccess() bool {
	return t.lastErr == nil && t.lastResult != nil
}

// ClearState forgets the outcome of the last request.
func (t *Transport) ClearState() {
	t.lastResult = nil
	t.lastErr = nil
}
