// Package cli holds the cobra commands of the advent binary.
package cli

import (
	"adventcal/auth"
	"adventcal/client"
	"adventcal/config"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// options are the persistent flags shared by the client commands.
type options struct {
	cfg    *config.Config
	server string
	token  string
}

// Execute runs the root command with os.Args and exits non-zero on failure.
func Execute() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. cfg supplies flag defaults.
func NewRootCmd(cfg *config.Config) *cobra.Command {
	opts := &options{cfg: cfg}
	rootCmd := &cobra.Command{
		Use:           "advent",
		Short:         "Advent calendar gifting service and client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.server, "server", "s", cfg.ServerURL, "Service base URL")
	rootCmd.PersistentFlags().StringVarP(&opts.token, "token", "t", os.Getenv("ADVENT_TOKEN"), "Bearer token from signin (or ADVENT_TOKEN)")

	rootCmd.AddCommand(
		newServeCmd(cfg),
		newSigninCmd(opts),
		newMeCmd(opts),
		newCalendarCmd(opts),
		newDoorCmd(opts),
	)
	return rootCmd
}

// connect restores the session for opts.token and returns a client bound to it.
func (o *options) connect(cmd *cobra.Command) (*client.Client, error) {
	if o.token == "" {
		return nil, fmt.Errorf("--token required (run `advent signin` first)")
	}
	provider := auth.NewServerProvider(o.server)
	if _, err := provider.Restore(cmd.Context(), o.token); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return client.New(o.server, auth.NewSession(provider)), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
