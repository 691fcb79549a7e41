package clovertg

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/clovertg/pkg/config"
	"github.com/kart-io/clovertg/pkg/logger"
)

type relayRequest struct {
	Path string
	Form url.Values
}

// fakeRelay stands in for the relay API and records every request.
type fakeRelay struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     string
	requests []relayRequest
}

func newFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	r := &fakeRelay{status: http.StatusOK, body: `{"data":"ok"}`}
	r.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_ = req.ParseForm()
		r.mu.Lock()
		r.requests = append(r.requests, relayRequest{Path: req.URL.Path, Form: req.PostForm})
		status, body := r.status, r.body
		r.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(r.Close)
	return r
}

func (r *fakeRelay) respond(status int, body string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.body = body
}

func (r *fakeRelay) last(t *testing.T) relayRequest {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.requests, "relay received no request")
	return r.requests[len(r.requests)-1]
}

func (r *fakeRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

func newTestClient(t *testing.T, relay *fakeRelay, opts ...Option) *Client {
	t.Helper()
	cfg, err := config.New(config.WithURL(relay.URL), config.WithToken("default-token"))
	require.NoError(t, err)

	opts = append([]Option{WithLogger(logger.Discard)}, opts...)
	c, err := New(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func TestNew(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := New(nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := New(&config.Config{URL: "not a url"})
		assert.Error(t, err)
	})

	t.Run("from env", func(t *testing.T) {
		t.Setenv(config.EnvURL, "https://relay.example.com")
		t.Setenv(config.EnvToken, "env-token")

		c, err := NewFromEnv(WithLogger(logger.Discard))
		require.NoError(t, err)
		assert.Equal(t, "env-token", c.defaultToken)
		assert.False(t, c.IsSuccess())
	})
}

func TestSetters_Chain(t *testing.T) {
	c := newTestClient(t, newFakeRelay(t))

	assert.Same(t, c, c.Token("t"))
	assert.Same(t, c, c.Message("m"))
	assert.Same(t, c, c.MessageID("42"))
	assert.Same(t, c, c.Callback("https://example.com/cb"))
	assert.Same(t, c, c.ExTime(120))
	assert.Same(t, c, c.Options(map[string]any{"k": "v"}))
	assert.Same(t, c, c.Buttons([]Button{{ID: "a", Text: "A"}}))
	assert.Same(t, c, c.AddButton("b", "B"))

	attrs := c.Attributes()
	require.NotNil(t, attrs.Token)
	assert.Equal(t, "t", *attrs.Token)
	assert.Equal(t, 120, attrs.ExTime)
	assert.Len(t, attrs.Buttons, 2)
}

func TestSend_Success(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	result := c.Send(context.Background(), "hello", "")

	require.NotNil(t, result)
	assert.True(t, c.IsSuccess())
	assert.Nil(t, c.LastError())
	assert.Equal(t, map[string]any{"data": "ok"}, c.LastResponse().Data)
	assert.Equal(t, PathSend, c.LastResponse().Path)

	req := relay.last(t)
	assert.Equal(t, PathSend, req.Path)
	assert.Equal(t, "hello", req.Form.Get("message"))
	assert.Equal(t, "60", req.Form.Get("ex_time"))
}

func TestSend_ClientError(t *testing.T) {
	relay := newFakeRelay(t)
	relay.respond(http.StatusBadRequest, `{"error":"bad token"}`)
	c := newTestClient(t, relay)

	result := c.Send(context.Background(), "hello", "")

	assert.Nil(t, result)
	assert.False(t, c.IsSuccess())
	assert.Nil(t, c.LastResponse())
	require.NotNil(t, c.LastError())
	assert.NotEmpty(t, c.LastError().Message)
	assert.Equal(t, KindClientError, c.LastError().Kind)
	assert.Equal(t, http.StatusBadRequest, c.LastError().Response.Status)
}

func TestSend_FailureAfterSuccessDropsResponse(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	require.NotNil(t, c.Send(context.Background(), "first", ""))

	relay.respond(http.StatusServiceUnavailable, "maintenance")
	assert.Nil(t, c.Send(context.Background(), "second", ""))

	assert.Nil(t, c.LastResponse())
	require.NotNil(t, c.LastError())
	assert.Equal(t, KindNetworkError, c.LastError().Kind)
	assert.Equal(t, "maintenance", c.LastError().Response.Body)
}

func TestTokenFallback(t *testing.T) {
	tests := []struct {
		name         string
		builderToken string
		explicit     string
		want         string
	}{
		{name: "explicit token", builderToken: "builder-token", explicit: "explicit", want: "explicit"},
		{name: "builder token", builderToken: "builder-token", want: "builder-token"},
		{name: "configured default", want: "default-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := newFakeRelay(t)
			c := newTestClient(t, relay)
			if tt.builderToken != "" {
				c.Token(tt.builderToken)
			}

			c.Send(context.Background(), "m", tt.explicit)

			assert.Equal(t, tt.want, relay.last(t).Form.Get("token"))
		})
	}
}

func TestSend_ExplicitTokenPersists(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	c.Send(context.Background(), "first", "explicit")
	c.Send(context.Background(), "second", "")

	assert.Equal(t, "explicit", relay.last(t).Form.Get("token"))
}

func TestNotify_AttributesPersist(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	c.Token("ops").
		Callback("https://example.com/ack").
		ExTime(90).
		Message(map[string]any{"host": "web-1"}).
		Notify(context.Background())

	c.Message("second").Notify(context.Background())

	req := relay.last(t)
	assert.Equal(t, "ops", req.Form.Get("token"))
	assert.Equal(t, "second", req.Form.Get("message"))
	assert.Equal(t, "https://example.com/ack", req.Form.Get("callback"))
	assert.Equal(t, "90", req.Form.Get("ex_time"))
	assert.Equal(t, 2, relay.count())
}

func TestNotify_StructuredMessage(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	c.Message(map[string]any{
		"status": "down",
		"checks": map[string]any{"http": "fail"},
	}).Notify(context.Background())

	assert.Equal(t, "checks: http: fail\nstatus: down", relay.last(t).Form.Get("message"))
}

func TestDispatch(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	result := c.Message("scheduled").Dispatch(context.Background())

	require.NotNil(t, result)
	req := relay.last(t)
	assert.Equal(t, PathDispatch, req.Path)
	assert.Equal(t, "scheduled", req.Form.Get("message"))
	assert.Equal(t, "default-token", req.Form.Get("token"))
}

func TestSendWithCallback(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)
		c.ExTime(5)

		c.SendWithCallback(context.Background(), "approve?", "https://example.com/cb", CallbackOptions{})

		req := relay.last(t)
		assert.Equal(t, PathSend, req.Path)
		assert.Equal(t, "approve?", req.Form.Get("message"))
		assert.Equal(t, "https://example.com/cb", req.Form.Get("callback"))
		assert.Equal(t, "60", req.Form.Get("ex_time"))
		assert.Empty(t, req.Form.Get("buttons[0][id]"))
	})

	t.Run("with options and buttons", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)
		exTime := 300

		c.SendWithCallback(context.Background(), "approve?", "https://example.com/cb", CallbackOptions{
			Token:   "approvals",
			ExTime:  &exTime,
			Options: map[string]any{"parse_mode": "HTML"},
			Buttons: []Button{{ID: "yes", Text: "Approve"}, {ID: "no", Text: "Reject"}},
		})

		req := relay.last(t)
		assert.Equal(t, "approvals", req.Form.Get("token"))
		assert.Equal(t, "300", req.Form.Get("ex_time"))
		assert.Equal(t, "HTML", req.Form.Get("options[parse_mode]"))
		assert.Equal(t, "yes", req.Form.Get("buttons[0][id]"))
		assert.Equal(t, "Approve", req.Form.Get("buttons[0][text]"))
		assert.Equal(t, "no", req.Form.Get("buttons[1][id]"))
	})

	t.Run("zero expiry is sent", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)
		exTime := 0

		c.SendWithCallback(context.Background(), "m", "https://example.com/cb", CallbackOptions{ExTime: &exTime})

		assert.Equal(t, "0", relay.last(t).Form.Get("ex_time"))
		assert.Equal(t, 0, c.Attributes().ExTime)
	})

	t.Run("empty buttons keep previous", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)
		c.AddButton("keep", "Keep")

		c.SendWithCallback(context.Background(), "m", "https://example.com/cb", CallbackOptions{Buttons: []Button{}})

		assert.Equal(t, "keep", relay.last(t).Form.Get("buttons[0][id]"))
	})
}

func TestSendPhoto(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	result := c.SendPhoto(context.Background(), "123", "https://img.example.com/a.jpg", "look")

	require.NotNil(t, result)
	req := relay.last(t)
	assert.Equal(t, PathSendPhoto, req.Path)
	assert.Equal(t, url.Values{
		"chat_id": {"123"},
		"url":     {"https://img.example.com/a.jpg"},
		"caption": {"look"},
	}, req.Form)
}

func TestSendPhotos(t *testing.T) {
	t.Run("album", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)

		c.SendPhotos(context.Background(), "123", []string{"https://a/1.jpg", "https://a/2.jpg"}, "album")

		req := relay.last(t)
		assert.Equal(t, PathSendPhotos, req.Path)
		assert.Equal(t, url.Values{
			"chat_id": {"123"},
			"urls[0]": {"https://a/1.jpg"},
			"urls[1]": {"https://a/2.jpg"},
			"caption": {"album"},
		}, req.Form)
	})

	t.Run("single url matches SendPhoto", func(t *testing.T) {
		relay := newFakeRelay(t)
		c := newTestClient(t, relay)

		c.SendPhoto(context.Background(), "123", "single-url", "caption")
		viaPhoto := relay.last(t)

		c.SendPhotos(context.Background(), "123", []string{"single-url"}, "caption")
		viaPhotos := relay.last(t)

		assert.Equal(t, 2, relay.count())
		assert.Equal(t, viaPhoto, viaPhotos)
	})
}

func TestEdit(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	result := c.Edit(context.Background(), "987", "corrected", "edit-token")

	require.NotNil(t, result)
	req := relay.last(t)
	assert.Equal(t, PathEdit, req.Path)
	assert.Equal(t, "edit-token", req.Form.Get("token"))
	assert.Equal(t, "987", req.Form.Get("message_id"))
	assert.Equal(t, "corrected", req.Form.Get("message"))

	attrs := c.Attributes()
	require.NotNil(t, attrs.MessageID)
	assert.Equal(t, "987", *attrs.MessageID)
}

func TestEditCaption(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)
	c.Token("builder-token").Message("untouched")

	c.EditCaption(context.Background(), "987", "new caption", "")

	assert.Equal(t, url.Values{
		"token":      {"builder-token"},
		"message_id": {"987"},
		"caption":    {"new caption"},
	}, relay.last(t).Form)

	attrs := c.Attributes()
	assert.Nil(t, attrs.MessageID)
	assert.Equal(t, "untouched", *attrs.Message)

	c.EditCaption(context.Background(), "987", "again", "explicit")
	assert.Equal(t, "explicit", relay.last(t).Form.Get("token"))
	assert.Equal(t, "builder-token", *c.Attributes().Token)
}

func TestOnError(t *testing.T) {
	relay := newFakeRelay(t)
	relay.respond(http.StatusUnprocessableEntity, `{"error":"invalid chat"}`)
	c := newTestClient(t, relay)

	var (
		gotErr *RequestError
		gotCtx map[string]any
	)
	assert.Same(t, c, c.OnErrorFunc(func(err *RequestError, context map[string]any) {
		gotErr = err
		gotCtx = context
	}))

	c.SendPhoto(context.Background(), "1", "u", "c")

	require.NotNil(t, gotErr)
	assert.Same(t, c.LastError(), gotErr)
	assert.Equal(t, PathSendPhoto, gotCtx["path"])
	assert.Equal(t, "client_error", gotCtx["kind"])
	assert.Equal(t, http.StatusUnprocessableEntity, gotCtx["status"])
}

func TestWithErrorHandler(t *testing.T) {
	relay := newFakeRelay(t)
	relay.respond(http.StatusBadRequest, "")

	calls := 0
	c := newTestClient(t, relay, WithErrorHandler(ErrorHandlerFunc(func(*RequestError, map[string]any) {
		calls++
	})))

	c.Send(context.Background(), "m", "")
	c.Dispatch(context.Background())
	assert.Equal(t, 2, calls)

	c.OnErrorFunc(nil)
	c.Send(context.Background(), "m", "")
	assert.Equal(t, 2, calls)
}

func TestClearState(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	c.Send(context.Background(), "ok", "")
	require.True(t, c.IsSuccess())
	c.ClearState()
	assert.Nil(t, c.LastResponse())
	assert.Nil(t, c.LastError())
	assert.False(t, c.IsSuccess())

	relay.respond(http.StatusBadRequest, "")
	c.Send(context.Background(), "fail", "")
	require.NotNil(t, c.LastError())
	c.ClearState()
	assert.Nil(t, c.LastResponse())
	assert.Nil(t, c.LastError())
}

func TestReset(t *testing.T) {
	relay := newFakeRelay(t)
	c := newTestClient(t, relay)

	c.Token("t").Callback("cb").ExTime(5).Send(context.Background(), "m", "")
	c.Reset()

	assert.True(t, c.IsSuccess(), "reset keeps the last outcome")
	c.Message("fresh").Notify(context.Background())

	req := relay.last(t)
	assert.Equal(t, "default-token", req.Form.Get("token"))
	assert.Equal(t, "60", req.Form.Get("ex_time"))
	assert.NotContains(t, req.Form, "callback")
}

func TestWithUserAgent(t *testing.T) {
	var mu sync.Mutex
	var ua string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		ua = r.UserAgent()
		mu.Unlock()
	}))
	defer server.Close()

	cfg, err := config.New(config.WithURL(server.URL))
	require.NoError(t, err)
	c, err := New(cfg, WithLogger(logger.Discard), WithUserAgent("ops-bot/3"), WithHTTPClient(server.Client()))
	require.NoError(t, err)

	c.Notify(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "ops-bot/3", ua)
}
