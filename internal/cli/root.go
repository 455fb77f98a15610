// Package cli is the taskboard command line: the browser UI server and the
// terminal board.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"taskboard/internal/config"
	"taskboard/internal/gateway"
	"taskboard/internal/logging"
)

// NewRootCommand builds the command tree. out receives command output.
func NewRootCommand(version string, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "taskboard",
		Short: "Personal task board",
		Long: `taskboard keeps your tasks in four columns (Todo, In Work, In Progress,
Done) and follows changes live.

It talks to a taskboard gateway configured with GATEWAY_URL and
GATEWAY_API_KEY, read from the environment or a .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.SetOut(out)

	root.AddCommand(newServeCommand())
	root.AddCommand(newBoardCommand())
	root.AddCommand(newVersionCommand(version))
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCommand(version, os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "taskboard", version)
		},
	}
}

// environment is what every command needs: configuration, a logger and a
// gateway client.
type environment struct {
	cfg    config.App
	log    *zap.Logger
	client *gateway.Client
}

func loadEnvironment() (*environment, error) {
	cfg, err := config.LoadApp()
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	opts := []gateway.Option{gateway.WithLogger(log)}
	if cfg.GatewayTimeout > 0 {
		opts = append(opts, gateway.WithTimeout(cfg.GatewayTimeout))
	}
	return &environment{
		cfg:    cfg,
		log:    log,
		client: gateway.New(cfg.GatewayURL, cfg.GatewayAPIKey, opts...),
	}, nil
}
