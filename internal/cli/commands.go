package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kart-io/clovertg"
)

// messageFlags are the builder attributes settable from the command line.
type messageFlags struct {
	structured bool
	messageID  string
	callback   string
	exTime     int
	options    map[string]string
	buttons    []string
}

func (m *messageFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&m.structured, "yaml", "y", false, "parse the message as a YAML document and format it")
	f.StringVar(&m.messageID, "message-id", "", "id of the message to edit")
	f.IntVar(&m.exTime, "ex-time", clovertg.DefaultExTime, "expiry window in seconds")
	f.StringToStringVarP(&m.options, "option", "o", nil, "relay option as key=value (repeatable)")
	f.StringArrayVarP(&m.buttons, "button", "b", nil, "button as id=text (repeatable)")
}

// registerCallback adds --callback for commands without a callback argument.
func (m *messageFlags) registerCallback(cmd *cobra.Command) {
	cmd.Flags().StringVar(&m.callback, "callback", "", "URL called when a recipient presses a button")
}

// apply sets the attributes whose flags were given on cmd.
func (m *messageFlags) apply(cmd *cobra.Command, c *clovertg.Client) error {
	f := cmd.Flags()
	if f.Changed("message-id") {
		c.MessageID(m.messageID)
	}
	if f.Changed("callback") {
		c.Callback(m.callback)
	}
	if f.Changed("ex-time") {
		c.ExTime(m.exTime)
	}
	if len(m.options) > 0 {
		c.Options(stringMap(m.options))
	}
	buttons, err := parseButtons(m.buttons)
	if err != nil {
		return err
	}
	if len(buttons) > 0 {
		c.Buttons(buttons)
	}
	return nil
}

// body returns the message argument, read from stdin when it is "-".
func (m *messageFlags) body(cmd *cobra.Command, arg string) (any, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read message from stdin: %w", err)
		}
		arg = strings.TrimRight(string(data), "\n")
	}
	if m.structured {
		return parseStructured(arg)
	}
	return arg, nil
}

func newSendCommand(g *globalFlags) *cobra.Command {
	m := &messageFlags{}
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send a message",
		Example: `  clovertg send "deploy finished"
  echo "status: ok" | clovertg send --yaml -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return sendWith(cmd, m, c, args[0], func(msg any) *clovertg.Result {
					return c.Send(ctx, msg, "")
				})
			})
		},
	}
	m.register(cmd)
	m.registerCallback(cmd)
	return cmd
}

func newDispatchCommand(g *globalFlags) *cobra.Command {
	m := &messageFlags{}
	cmd := &cobra.Command{
		Use:   "dispatch <message>",
		Short: "Queue a message for scheduled delivery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return sendWith(cmd, m, c, args[0], func(msg any) *clovertg.Result {
					return c.Message(msg).Dispatch(ctx)
				})
			})
		},
	}
	m.register(cmd)
	m.registerCallback(cmd)
	return cmd
}

func newCallbackCommand(g *globalFlags) *cobra.Command {
	m := &messageFlags{}
	cmd := &cobra.Command{
		Use:   "callback <message> <callback-url>",
		Short: "Send a message with buttons that call back a URL",
		Example: `  clovertg callback "approve release?" https://example.com/ack \
    --button yes=Approve --button no=Reject --ex-time 300`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return callbackWith(cmd, m, c, args[0], func(msg any, opts clovertg.CallbackOptions) *clovertg.Result {
					return c.SendWithCallback(ctx, msg, args[1], opts)
				})
			})
		},
	}
	m.register(cmd)
	return cmd
}

func newPhotoCommand(g *globalFlags) *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "photo <chat-id> <photo-url>",
		Short: "Send a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return c.SendPhoto(ctx, args[0], args[1], caption), nil
			})
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "photo caption")
	return cmd
}

func newPhotosCommand(g *globalFlags) *cobra.Command {
	var caption string
	cmd := &cobra.Command{
		Use:   "photos <chat-id> <photo-url>...",
		Short: "Send an album of photos",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return c.SendPhotos(ctx, args[0], args[1:], caption), nil
			})
		},
	}
	cmd.Flags().StringVar(&caption, "caption", "", "album caption")
	return cmd
}

func newEditCommand(g *globalFlags) *cobra.Command {
	m := &messageFlags{}
	cmd := &cobra.Command{
		Use:   "edit <message-id> <message>",
		Short: "Replace the text of a sent message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return sendWith(cmd, m, c, args[1], func(msg any) *clovertg.Result {
					return c.Edit(ctx, args[0], msg, "")
				})
			})
		},
	}
	m.register(cmd)
	m.registerCallback(cmd)
	return cmd
}

func newEditCaptionCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "edit-caption <message-id> <caption>",
		Short: "Replace the caption of a sent photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, g, func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error) {
				return c.EditCaption(ctx, args[0], args[1], ""), nil
			})
		},
	}
}

func sendWith(cmd *cobra.Command, m *messageFlags, c *clovertg.Client, arg string, send func(msg any) *clovertg.Result) (*clovertg.Result, error) {
	if err := m.apply(cmd, c); err != nil {
		return nil, err
	}
	msg, err := m.body(cmd, arg)
	if err != nil {
		return nil, err
	}
	return send(msg), nil
}

// callbackWith applies the flags like sendWith but passes ex-time, options
// and buttons through CallbackOptions, which owns their defaults.
func callbackWith(cmd *cobra.Command, m *messageFlags, c *clovertg.Client, arg string, send func(msg any, opts clovertg.CallbackOptions) *clovertg.Result) (*clovertg.Result, error) {
	if cmd.Flags().Changed("message-id") {
		c.MessageID(m.messageID)
	}
	buttons, err := parseButtons(m.buttons)
	if err != nil {
		return nil, err
	}
	msg, err := m.body(cmd, arg)
	if err != nil {
		return nil, err
	}
	opts := clovertg.CallbackOptions{Buttons: buttons}
	if cmd.Flags().Changed("ex-time") {
		opts.ExTime = &m.exTime
	}
	if len(m.options) > 0 {
		opts.Options = stringMap(m.options)
	}
	return send(msg, opts), nil
}

func parseButtons(values []string) ([]clovertg.Button, error) {
	buttons := make([]clovertg.Button, 0, len(values))
	for _, raw := range values {
		id, text, ok := strings.Cut(raw, "=")
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid button %q: want id=text", raw)
		}
		buttons = append(buttons, clovertg.Button{ID: id, Text: text})
	}
	return buttons, nil
}

func stringMap(in map[string]string) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
