package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/target/ghsession/internal/bootstrap"
)

func (c *cli) agentCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Serve the session to local processes",
		Long: `Run the local agent. It restores the stored session and serves:

  GET  /session          current state (never the token)
  POST /session/signin   run the browser sign-in
  POST /session/signout  sign out
  GET  /session/events   state changes as server-sent events
  GET  /healthz          liveness
  GET  /metrics          Prometheus metrics (OBSERVABILITY_METRICS_BACKEND=prometheus)
  /api/*                 proxy to API_BASE_URL with the session's bearer token

Cross-site browser requests are refused. POST routes and /api/* need
Content-Type: application/json or an X-Requested-With header.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Agent.Addr = addr
			}
			rt, err := c.runtime(cmd)
			if err != nil {
				return err
			}
			defer c.closeRuntime(rt)

			ctx := cmd.Context()
			agent, err := bootstrap.StartAgent(ctx, rt)
			if err != nil {
				return err
			}
			if err := writef(cmd.OutOrStdout(), "Agent listening on http://%s\n", agent.Addr); err != nil {
				c.logger.Warn("write banner", "error", err)
			}

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-agent.Err():
			}

			if err := bootstrap.ShutdownAgent(ctx, agent, c.cfg.Agent.ShutdownTimeout, c.logger); err != nil {
				return fmt.Errorf("shutdown agent: %w", err)
			}
			return serveErr
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides AGENT_ADDR)")
	return cmd
}
