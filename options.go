package clovertg

import (
	"net/http"

	"github.com/kart-io/clovertg/pkg/logger"
	"github.com/kart-io/clovertg/pkg/observability"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     logger.Logger
	handler    ErrorHandler
	telemetry  *observability.Provider
	userAgent  string
}

// WithHTTPClient sets the HTTP client used for requests. The configured
// timeout still bounds every request.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger overrides the logger built from the configuration.
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithErrorHandler registers the error handler at construction.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) { o.handler = h }
}

// WithTelemetryProvider uses an existing telemetry provider instead of
// creating one from the configuration. The client does not shut it down.
func WithTelemetryProvider(p *observability.Provider) Option {
	return func(o *options) { o.telemetry = p }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}
