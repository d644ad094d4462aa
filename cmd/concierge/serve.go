package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/codefionn/concierge/internal/api"
	"github.com/codefionn/concierge/internal/config"
	"github.com/codefionn/concierge/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the orchestrator over HTTP",
	Long: `Serve exposes the orchestrator as a JSON API:

  POST /v1/requests   run a request (?stream=true streams NDJSON progress)
  GET  /v1/tools      list available tools
  GET  /healthz       liveness
  GET  /metrics       Prometheus metrics (when telemetry.metrics_enabled)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rt, err := newApp(ctx, appOptions{
			connectServers: true,
			override: func(cfg *config.Config) {
				if serveAddr != "" {
					cfg.Server.Addr = serveAddr
				}
			},
		})
		if err != nil {
			return err
		}
		defer rt.close()

		var opts []api.Option
		if rt.cfg.Telemetry.MetricsEnabled {
			opts = append(opts, api.WithMetricsHandler(promhttp.HandlerFor(rt.metrics, promhttp.HandlerOpts{})))
		}
		server := api.NewServer(rt.orch, rt.registry, rt.cfg.Server.Addr, opts...)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			logger.Info("Shutting down API server")
			return server.Stop(context.Background())
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, overrides server.addr")
}
