// Package cli implements the clovertg command line tool using cobra.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/clovertg"
	"github.com/kart-io/clovertg/pkg/config"
)

const version = "1.1.0"

type globalFlags struct {
	configPath string
	url        string
	token      string
	timeout    time.Duration
	logLevel   string
}

// NewRootCommand builds the clovertg command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "clovertg",
		Short: "Send notifications through a CloverTg relay",
		Long: `clovertg posts messages, photos and edits to a CloverTg relay.

Settings are read from the --config file, then CLOVERTG_* environment
variables, then flags. The JSON result is printed on success.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML or JSON config file")
	pf.StringVar(&g.url, "url", "", "relay base URL (env "+config.EnvURL+")")
	pf.StringVarP(&g.token, "token", "t", "", "channel token (env "+config.EnvToken+")")
	pf.DurationVar(&g.timeout, "timeout", config.DefaultTimeout, "request timeout (env "+config.EnvTimeout+")")
	pf.StringVar(&g.logLevel, "log-level", "", "silent, error, warn, info or debug (env "+config.EnvLogLevel+")")

	root.AddCommand(
		newSendCommand(g),
		newDispatchCommand(g),
		newCallbackCommand(g),
		newPhotoCommand(g),
		newPhotosCommand(g),
		newEditCommand(g),
		newEditCaptionCommand(g),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string) int {
	root := NewRootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "clovertg:", err)
		return 1
	}
	return 0
}

// newClient builds a client from the config file, the environment and the
// flags that were set on cmd, in that order.
func newClient(cmd *cobra.Command, g *globalFlags) (*clovertg.Client, error) {
	var opts []config.Option
	if g.configPath != "" {
		opts = append(opts, config.WithFile(g.configPath))
	}
	opts = append(opts, config.WithEnvDefaults())

	flags := cmd.Flags()
	if flags.Changed("url") {
		opts = append(opts, config.WithURL(g.url))
	}
	if flags.Changed("token") {
		opts = append(opts, config.WithToken(g.token))
	}
	if flags.Changed("timeout") {
		opts = append(opts, config.WithTimeout(g.timeout))
	}
	if flags.Changed("log-level") {
		opts = append(opts, config.WithLogLevel(g.logLevel))
	}

	cfg, err := config.New(opts...)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger()
	// Failures are reported through the command's error, so the handler only
	// leaves a debug trace.
	handler := clovertg.ErrorHandlerFunc(func(err *clovertg.RequestError, context map[string]any) {
		log.Debug("relay request failed", "error", err, "context", context)
	})
	return clovertg.New(cfg, clovertg.WithErrorHandler(handler), clovertg.WithUserAgent("clovertg-cli/"+version))
}

// run builds a client, performs op and prints its result.
func run(cmd *cobra.Command, g *globalFlags, op func(ctx context.Context, c *clovertg.Client) (*clovertg.Result, error)) error {
	c, err := newClient(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = c.Close(context.Background()) }()

	result, err := op(cmd.Context(), c)
	if err != nil {
		return err
	}
	if result == nil {
		if reqErr := c.LastError(); reqErr != nil {
			return reqErr
		}
		return fmt.Errorf("request failed")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
