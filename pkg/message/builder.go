// Package message provides the attribute builder and body formatter for
// relay API requests.
package message

// DefaultExTime is the default expiry window, in seconds, of a
// callback-confirmable message.
const DefaultExTime = 60

// Button is an interactive choice rendered on a sent message.
type Button struct {
	ID   string `json:"id" yaml:"id"`
	Text string `json:"text" yaml:"text"`
}

// Attributes is a copy of the values held by a Builder.
// Nil pointers mean the attribute was never set.
type Attributes struct {
	Token     *string
	Message   *string
	MessageID *string
	Callback  *string
	ExTime    int
	Options   map[string]any
	Buttons   []Button
}

// Builder accumulates request attributes through chained setters.
// Values persist across sends until overwritten, so one Builder acts as a
// mutable template for consecutive requests.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	attrs Attributes
}

// NewBuilder creates a builder with default attributes
func NewBuilder() *Builder {
	return &Builder{attrs: defaults()}
}

func defaults() Attributes {
	return Attributes{
		ExTime:  DefaultExTime,
		Options: map[string]any{},
	}
}

// Token sets the channel token
func (b *Builder) Token(token string) *Builder {
	b.attrs.Token = &token
	return b
}

// Message sets the message body. Mappings and slices are rendered with Format.
func (b *Builder) Message(data any) *Builder {
	text := Format(data)
	b.attrs.Message = &text
	return b
}

// MessageID sets the id of the message to edit
func (b *Builder) MessageID(id string) *Builder {
	b.attrs.MessageID = &id
	return b
}

// Callback sets the URL the remote service calls when a recipient acts on the message
func (b *Builder) Callback(url string) *Builder {
	b.attrs.Callback = &url
	return b
}

// ExTime sets the expiry window in seconds
func (b *Builder) ExTime(seconds int) *Builder {
	b.attrs.ExTime = seconds
	return b
}

// Options sets the free-form options forwarded to the remote service.
// The map is copied; later changes by the caller are not seen.
func (b *Builder) Options(options map[string]any) *Builder {
	b.attrs.Options = copyOptions(options)
	return b
}

// Buttons sets the interactive buttons
func (b *Builder) Buttons(buttons []Button) *Builder {
	b.attrs.Buttons = buttons
	return b
}

// AddButton appends a single button
func (b *Builder) AddButton(id, text string) *Builder {
	b.attrs.Buttons = append(b.attrs.Buttons, Button{ID: id, Text: text})
	return b
}

// Reset restores the default attributes
func (b *Builder) Reset() *Builder {
	b.attrs = defaults()
	return b
}

// Attributes returns a copy of the current attributes
func (b *Builder) Attributes() Attributes {
	a := b.attrs
	a.Options = copyOptions(b.attrs.Options)
	if b.attrs.Buttons != nil {
		a.Buttons = append([]Button(nil), b.attrs.Buttons...)
	}
	return a
}

func copyOptions(options map[string]any) map[string]any {
	if options == nil {
		return nil
	}
	out := make(map[string]any, len(options))
	for k, v := range options {
		out[k] = v
	}
	return out
}

// ResolveToken applies the token policy: a non-empty explicit token wins,
// then the builder's token if one was set, then fallback.
func (b *Builder) ResolveToken(explicit, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if b.attrs.Token != nil {
		return *b.attrs.Token
	}
	return fallback
}

// Snapshot returns the form fields of a send request. Attributes that were
// never set are left out; buttons are included only when present.
func (b *Builder) Snapshot(defaultToken string) map[string]any {
	fields := map[string]any{
		"token":   b.ResolveToken("", defaultToken),
		"ex_time": b.attrs.ExTime,
		"options": b.attrs.Options,
	}
	if b.attrs.Message != nil {
		fields["message"] = *b.attrs.Message
	}
	if b.attrs.MessageID != nil {
		fields["message_id"] = *b.attrs.MessageID
	}
	if b.attrs.Callback != nil {
		fields["callback"] = *b.attrs.Callback
	}
	if len(b.attrs.Buttons) > 0 {
		buttons := make([]any, len(b.attrs.Buttons))
		for i, btn := range b.attrs.Buttons {
			buttons[i] = map[string]any{"id": btn.ID, "text": btn.Text}
		}
		fields["buttons"] = buttons
	}
	return fields
}
