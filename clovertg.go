// Package clovertg is a client for the CloverTg push relay API. It sends
// messages, dispatches scheduled messages, uploads photos and edits sent
// messages.
//
// Basic usage:
//
//	cfg, err := config.New(config.WithEnvDefaults())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clovertg.New(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close(context.Background())
//
//	client.Send(ctx, "deploy finished", "")
//	if !client.IsSuccess() {
//		log.Println(client.LastError())
//	}
//
// Attributes set through the chained setters persist across sends:
//
//	client.Token("ops-channel").
//		Callback("https://example.com/ack").
//		ExTime(120).
//		AddButton("ack", "Acknowledge")
//
//	client.Message(map[string]any{"host": "web-1", "load": "12.5"}).Notify(ctx)
//	client.Message("second alert").Notify(ctx)
//
// Send operations never return an error. A failed request returns a nil
// Result; the failure is available from LastError and is passed to the
// handler registered with OnError, or logged when no handler is set.
package clovertg

import (
	"github.com/kart-io/clovertg/pkg/config"
	"github.com/kart-io/clovertg/pkg/errors"
	"github.com/kart-io/clovertg/pkg/message"
	"github.com/kart-io/clovertg/pkg/transport"
)

type (
	// Result is the normalized answer of a successful request
	Result = transport.Result

	// RequestError records a failed request
	RequestError = errors.RequestError

	// ErrorHandler receives failed requests in place of the default logging
	ErrorHandler = transport.ErrorHandler

	// ErrorHandlerFunc adapts a function to ErrorHandler
	ErrorHandlerFunc = transport.ErrorHandlerFunc

	// Button is an interactive choice rendered on a sent message
	Button = message.Button

	// Attributes is a copy of the values held by the client's builder
	Attributes = message.Attributes

	// Config holds the client configuration
	Config = config.Config

	// Kind classifies a failed request
	Kind = errors.Kind
)

// Failure kinds
const (
	KindClientError  = errors.KindClientError
	KindNetworkError = errors.KindNetworkError
	KindUnknownError = errors.KindUnknownError
)

// DefaultExTime is the expiry window, in seconds, used by SendWithCallback
// when none is given.
const DefaultExTime = message.DefaultExTime

// Relay API paths
const (
	PathSend       = "/send"
	PathDispatch   = "/dispatch"
	PathSendPhoto  = "/send/photo"
	PathSendPhotos = "/send/photos"
	PathEdit       = "/edit"
)
