// Command ghsession signs in to GitHub, keeps the session on this device, and serves it
// to other local processes through the agent.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/target/ghsession/config"
	"github.com/target/ghsession/internal/adapters/oauthflow"
	"github.com/target/ghsession/internal/bootstrap"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1) //nolint:forbidigo // CLI must exit with failure status on command errors
	}
}

// cli holds state shared by subcommands.
type cli struct {
	envFile string
	verbose bool
	asJSON  bool

	cfg    config.AppConfig
	logger *slog.Logger

	// open overrides the browser opener (tests).
	open oauthflow.BrowserOpener
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "ghsession",
		Short: "GitHub sign-in session manager",
		Long: `ghsession signs in to GitHub with the OAuth authorization-code flow,
exchanges the code with your backend, and keeps the resulting session
in the configured store. Other tools reuse it through "ghsession agent".

Configuration comes from the environment (and a .env file when present).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "load settings from this file instead of ./.env")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at LOG_LEVEL instead of warn")

	root.AddCommand(
		c.loginCmd(),
		c.logoutCmd(),
		c.whoamiCmd(),
		c.statusCmd(),
		c.agentCmd(),
		versionCmd(),
	)
	return root
}

// setup loads configuration and installs the logger before any command runs.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}

	var files []string
	if c.envFile != "" {
		if _, err := os.Stat(c.envFile); err != nil {
			return fmt.Errorf("env file: %w", err)
		}
		files = append(files, c.envFile)
	}
	cfg, err := bootstrap.LoadConfig(files...)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := cfg.Observability.SlogLevel()
	if !c.verbose && cmd.Name() != "agent" && level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	c.logger = bootstrap.InitLogger(bootstrap.LoggerOptions{
		Level: level,
		Text:  cfg.IsDev,
		Out:   cmd.ErrOrStderr(),
	})
	return nil
}

// runtime wires and restores the session manager.
func (c *cli) runtime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	open := c.open
	if open == nil {
		open = oauthflow.SystemBrowser(cmd.ErrOrStderr())
	}
	rt, err := bootstrap.Build(cmd.Context(), c.cfg, bootstrap.BuildOptions{
		Logger: c.logger,
		Open:   open,
	})
	if err != nil {
		return nil, err
	}
	rt.Session.Restore(cmd.Context())
	return rt, nil
}

func (c *cli) closeRuntime(rt *bootstrap.Runtime) {
	if err := rt.Close(); err != nil {
		c.logger.Warn("close session store", "error", err)
	}
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

var errNotSignedIn = errors.New("not signed in; run \"ghsession login\"")
