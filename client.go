package clovertg

import (
	"context"
	"fmt"

	"github.com/kart-io/clovertg/pkg/config"
	"github.com/kart-io/clovertg/pkg/logger"
	"github.com/kart-io/clovertg/pkg/message"
	"github.com/kart-io/clovertg/pkg/observability"
	"github.com/kart-io/clovertg/pkg/transport"
)

// Client sends requests to the relay API. It combines an attribute builder,
// whose values persist across sends, with a transport that records the
// outcome of the last request.
//
// A Client is not safe for concurrent use. Use one Client per goroutine or
// serialize access.
type Client struct {
	builder      *message.Builder
	transport    *transport.Transport
	telemetry    *observability.Provider
	ownTelemetry bool
	defaultToken string
	logger       logger.Logger
}

// CallbackOptions configures SendWithCallback.
type CallbackOptions struct {
	// Token overrides the channel token when non-empty
	Token string
	// ExTime is the expiry window in seconds; nil means DefaultExTime
	ExTime *int
	// Options are forwarded to the relay; nil means none
	Options map[string]any
	// Buttons replace the builder's buttons when non-empty
	Buttons []Button
}

// New creates a client from cfg.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		builder:      message.NewBuilder(),
		defaultToken: cfg.Token,
		logger:       o.logger,
	}
	if c.logger == nil {
		c.logger = cfg.Logger()
	}

	c.telemetry = o.telemetry
	if c.telemetry == nil {
		p, err := observability.NewProvider(context.Background(), cfg.Telemetry)
		if err != nil {
			return nil, fmt.Errorf("failed to create telemetry provider: %w", err)
		}
		c.telemetry = p
		c.ownTelemetry = true
	}

	topts := []transport.Option{
		transport.WithTimeout(cfg.Timeout),
		transport.WithLogger(c.logger),
		transport.WithTelemetry(c.telemetry),
		transport.WithErrorHandler(o.handler),
	}
	if o.httpClient != nil {
		topts = append(topts, transport.WithHTTPClient(o.httpClient))
	}
	if o.userAgent != "" {
		topts = append(topts, transport.WithUserAgent(o.userAgent))
	}
	c.transport = transport.New(cfg.URL, topts...)

	c.logger.Debug("clovertg client created", "url", c.transport.BaseURL(), "telemetry", c.telemetry.Enabled())
	return c, nil
}

// NewFromEnv creates a client configured from CLOVERTG_* environment variables.
func NewFromEnv(opts ...Option) (*Client, error) {
	cfg, err := config.New(config.WithEnvDefaults())
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

// Token sets the channel token.
func (c *Client) Token(token string) *Client {
	c.builder.Token(token)
	return c
}

// Message sets the message body. Mappings and slices are rendered one entry
// per line.
func (c *Client) Message(data any) *Client {
	c.builder.Message(data)
	return c
}

// MessageID sets the id of the message to edit.
func (c *Client) MessageID(id string) *Client {
	c.builder.MessageID(id)
	return c
}

// Callback sets the URL the relay calls when a recipient acts on the message.
func (c *Client) Callback(url string) *Client {
	c.builder.Callback(url)
	return c
}

// ExTime sets the expiry window in seconds.
func (c *Client) ExTime(seconds int) *Client {
	c.builder.ExTime(seconds)
	return c
}

// Options sets the options forwarded to the relay.
func (c *Client) Options(options map[string]any) *Client {
	c.builder.Options(options)
	return c
}

// Buttons sets the interactive buttons.
func (c *Client) Buttons(buttons []Button) *Client {
	c.builder.Buttons(buttons)
	return c
}

// AddButton appends one button.
func (c *Client) AddButton(id, text string) *Client {
	c.builder.AddButton(id, text)
	return c
}

// Reset restores the default attributes. The last outcome is kept.
func (c *Client) Reset() *Client {
	c.builder.Reset()
	return c
}

// Attributes returns a copy of the current attributes.
func (c *Client) Attributes() Attributes {
	return c.builder.Attributes()
}

// Send sets the message, and the token when token is non-empty, then posts
// the attributes to /send.
func (c *Client) Send(ctx context.Context, msg any, token string) *Result {
	if token != "" {
		c.builder.Token(token)
	}
	c.builder.Message(msg)
	return c.Notify(ctx)
}

// Notify posts the current attributes to /send.
func (c *Client) Notify(ctx context.Context) *Result {
	return c.transport.Request(ctx, PathSend, c.builder.Snapshot(c.defaultToken))
}

// Dispatch posts the current attributes to /dispatch.
func (c *Client) Dispatch(ctx context.Context) *Result {
	return c.transport.Request(ctx, PathDispatch, c.builder.Snapshot(c.defaultToken))
}

// SendWithCallback sends a message the recipient can act on. The relay calls
// callbackURL when a button is pressed, until the expiry window passes.
func (c *Client) SendWithCallback(ctx context.Context, msg any, callbackURL string, opts CallbackOptions) *Result {
	exTime := DefaultExTime
	if opts.ExTime != nil {
		exTime = *opts.ExTime
	}
	extra := opts.Options
	if extra == nil {
		extra = map[string]any{}
	}

	if opts.Token != "" {
		c.builder.Token(opts.Token)
	}
	c.builder.Message(msg).
		Callback(callbackURL).
		ExTime(exTime).
		Options(extra)
	if len(opts.Buttons) > 0 {
		c.builder.Buttons(opts.Buttons)
	}
	return c.Notify(ctx)
}

// SendPhoto posts one photo to a chat. It does not use the builder.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) *Result {
	return c.transport.Request(ctx, PathSendPhoto, map[string]any{
		"chat_id": chatID,
		"url":     photoURL,
		"caption": caption,
	})
}

// SendPhotos posts an album to a chat. A single URL is sent with SendPhoto.
func (c *Client) SendPhotos(ctx context.Context, chatID string, urls []string, caption string) *Result {
	if len(urls) == 1 {
		return c.SendPhoto(ctx, chatID, urls[0], caption)
	}
	return c.transport.Request(ctx, PathSendPhotos, map[string]any{
		"chat_id": chatID,
		"urls":    append([]string(nil), urls...),
		"caption": caption,
	})
}

// Edit replaces the body of a sent message and posts the attributes to /edit.
func (c *Client) Edit(ctx context.Context, messageID string, msg any, token string) *Result {
	if token != "" {
		c.builder.Token(token)
	}
	c.builder.MessageID(messageID).Message(msg)
	return c.transport.Request(ctx, PathEdit, c.builder.Snapshot(c.defaultToken))
}

// EditCaption replaces the caption of a sent photo. Only token, message_id
// and caption are posted; the builder is left unchanged.
func (c *Client) EditCaption(ctx context.Context, messageID, caption, token string) *Result {
	return c.transport.Request(ctx, PathEdit, map[string]any{
		"token":      c.builder.ResolveToken(token, c.defaultToken),
		"message_id": messageID,
		"caption":    caption,
	})
}

// OnError registers h to receive failed requests instead of the logger.
// A nil handler restores logging.
func (c *Client) OnError(h ErrorHandler) *Client {
	c.transport.OnError(h)
	return c
}

// OnErrorFunc registers fn as the error handler.
func (c *Client) OnErrorFunc(fn func(err *RequestError, context map[string]any)) *Client {
	if fn == nil {
		return c.OnError(nil)
	}
	return c.OnError(ErrorHandlerFunc(fn))
}

// LastError returns the error of the last request, or nil.
func (c *Client) LastError() *RequestError {
	return c.transport.LastError()
}

// LastResponse returns the result of the last request, or nil.
func (c *Client) LastResponse() *Result {
	return c.transport.LastResult()
}

// IsSuccess reports whether the last request succeeded.
func (c *Client) IsSuccess() bool {
	return c.transport.IsSuccess()
}

// ClearState forgets the outcome of the last request.
func (c *Client) ClearState() {
	c.transport.ClearState()
}

// Close flushes telemetry created by New. A provider passed with
// WithTelemetryProvider is left running.
func (c *Client) Close(ctx context.Context) error {
	if !c.ownTelemetry {
		return nil
	}
	return c.telemetry.Shutdown(ctx)
}
