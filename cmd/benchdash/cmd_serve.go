package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mlbench/benchdash/internal/aggregation"
	"github.com/mlbench/benchdash/internal/webserver"
	"github.com/spf13/cobra"
)

var serveBindings = map[string]string{
	"server.host":       "host",
	"server.port":       "port",
	"server.workers":    "workers",
	"cache.ttl_minutes": "ttl",
	"source.kind":       "source",
}

func newServeCommand(g *globalOptions) *cobra.Command {
	var noWarmup bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API server",
		Long: `Run the dashboard API server.

The first request (or the warm-up at startup) fetches records from the
configured source and computes every view. Results are cached for the
configured TTL; when a refresh fails the previous results are served and
marked stale.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd, serveBindings)
			if err != nil {
				return err
			}
			logger := slog.Default()

			orch, err := newOrchestrator(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !noWarmup {
				go func() {
					if _, err := orch.GetOrCompute(ctx, false); err != nil {
						logger.Warn("cache warm-up failed", "error", err)
					}
				}()
			}

			srv, err := webserver.New(webserver.Config{
				Host:              cfg.Server.Host,
				Port:              cfg.Server.Port,
				Workers:           cfg.Server.Workers,
				AllowedOrigins:    cfg.Server.AllowedOrigins,
				ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
				Store:             orch,
				Aggregation:       aggregation.OptionsFromConfig(cfg.Aggregation),
				Logger:            logger,
			})
			if err != nil {
				return err
			}
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().String("host", "", "Interface to bind")
	cmd.Flags().Int("port", 0, "Port to listen on")
	cmd.Flags().Int("workers", 0, "Worker count; bounds concurrent requests")
	cmd.Flags().Int("ttl", 0, "Cache lifetime in minutes")
	cmd.Flags().String("source", "", "Record source: hub, file or blob")
	cmd.Flags().BoolVar(&noWarmup, "no-warmup", false, "Skip the initial cache fill at startup")

	return cmd
}
