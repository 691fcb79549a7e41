package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ResponseInfo captures the remote answer attached to a failed request
type ResponseInfo struct {
	Status int `json:"status"`
	// Body is the decoded JSON body, or the raw body string when it is not JSON
	Body any `json:"body"`
}

// RequestError records a failed request to the relay API.
// It is produced by the transport and stored as the client's last error;
// it is never returned to the caller of a send operation.
type RequestError struct {
	Message string `json:"message"`
	// Code is the HTTP status when a response was received, otherwise 0
	Code int  `json:"code"`
	Kind Kind `json:"kind"`
	// Context carries at least "path" and "kind"
	Context  map[string]any `json:"context"`
	Time     time.Time      `json:"time"`
	Response *ResponseInfo  `json:"response,omitempty"`

	Cause error `json:"-"`
}

// Error implements the error interface
func (e *RequestError) Error() string {
	if path, ok := e.Context["path"].(string); ok && path != "" {
		return fmt.Sprintf("%s: %s (path: %s)", e.Kind, e.Message, path)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause error
func (e *RequestError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a RequestError of the same kind
func (e *RequestError) Is(target error) bool {
	if targetErr, ok := target.(*RequestError); ok {
		return e.Kind == targetErr.Kind
	}
	return false
}

// MarshalJSON implements json.Marshaler
func (e *RequestError) MarshalJSON() ([]byte, error) {
	type Alias RequestError
	return json.Marshal(&struct {
		*Alias
		CauseMessage string `json:"cause_message,omitempty"`
	}{
		Alias:        (*Alias)(e),
		CauseMessage: e.causeMessage(),
	})
}

func (e *RequestError) causeMessage() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return ""
}

// WithCause adds a cause error
func (e *RequestError) WithCause(cause error) *RequestError {
	e.Cause = cause
	return e
}

// WithContext adds a context entry
func (e *RequestError) WithContext(key string, value any) *RequestError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithResponse attaches the remote answer and uses its status as the code
func (e *RequestError) WithResponse(status int, body any) *RequestError {
	e.Response = &ResponseInfo{Status: status, Body: body}
	e.Code = status
	return e
}

// Path returns the request path the error was recorded for
func (e *RequestError) Path() string {
	path, _ := e.Context["path"].(string)
	return path
}

// ToMap converts the error to a map representation
func (e *RequestError) ToMap() map[string]any {
	result := map[string]any{
		"message": e.Message,
		"code":    e.Code,
		"kind":    string(e.Kind),
		"time":    e.Time,
	}

	ctx := make(map[string]any, len(e.Context))
	for k, v := range e.Context {
		ctx[k] = v
	}
	result["context"] = ctx

	if e.Response != nil {
		result["response"] = map[string]any{
			"status": e.Response.Status,
			"body":   e.Response.Body,
		}
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

// New creates a RequestError of the given kind for a request path
func New(kind Kind, path, message string) *RequestError {
	return &RequestError{
		Message: message,
		Kind:    kind,
		Context: map[string]any{
			"path": path,
			"kind": string(kind),
		},
		Time: time.Now(),
	}
}

// Wrap wraps an existing error, using its text as the message
func Wrap(err error, kind Kind, path string) *RequestError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return New(kind, path, msg).WithCause(err)
}

// KindOf extracts the failure kind from an error
func KindOf(err error) Kind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}
	return KindUnknownError
}

// IsClientError checks if err was caused by a 4xx answer
func IsClientError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindClientError
}

// IsNetworkError checks if err is a transport-level failure
func IsNetworkError(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.Kind == KindNetworkError
}
