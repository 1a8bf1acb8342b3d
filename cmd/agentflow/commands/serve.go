package commands

import (
	"github.com/spf13/cobra"

	"github.com/agentflow/agentflow/pkg/server"
)

func newServeCommand(version string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the workflow HTTP server",
		Long: `Start the AgentFlow HTTP server.

The server exposes:
  - POST /workflow/execute        synchronous workflow execution
  - POST /workflow/execute_async  asynchronous execution (returns workflow_id)
  - GET  /workflow/status/{id}    run status and output
  - GET  /workflow/status/{id}/events  per-instruction event stream
  - GET  /workflow/runs           run history
  - GET  /healthz                 store health
  - GET  /metrics                 Prometheus metrics`,
		Example: `  # Serve with defaults (:8080, agentflow.db)
  agentflow serve

  # Serve with a config file
  agentflow serve --config agentflow.yaml

  # Override the listen address
  agentflow serve --listen :9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer app.Close()

			if listenAddr != "" {
				app.cfg.Server.ListenAddr = listenAddr
			}

			metrics := app.tel.Metrics
			if !app.cfg.Telemetry.MetricsEnabled {
				metrics = nil
			}

			srv := server.NewServer(app.cfg.Server, app.runner, app.store, metrics, app.logger)
			return srv.Run()
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "listen address (overrides config)")

	return cmd
}
