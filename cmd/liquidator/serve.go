package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/defistate/liquidator-go/pkg/chains"
	"github.com/defistate/liquidator-go/rpc/jsonrpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	defaultListenAddr = "127.0.0.1:8547"
	shutdownTimeout   = 5 * time.Second
)

func serveCommand(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves the liquidator JSON-RPC API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := newLogger(cfg, true)
			if err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			app, err := bootstrap(cfg, logger, reg)
			if err != nil {
				return err
			}

			rpcServer, err := jsonrpc.NewServer(jsonrpc.NewService(app.Liquidator, logger.With("component", "jsonrpc")))
			if err != nil {
				return err
			}
			defer rpcServer.Stop()

			metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
			listenAddr := cfg.ListenAddr
			if listenAddr == "" {
				listenAddr = defaultListenAddr
			}
			mux := http.NewServeMux()
			mux.Handle("/", rpcServer)
			servers := []*http.Server{{Addr: listenAddr, Handler: mux}}
			if cfg.MetricsAddr == "" {
				mux.Handle("/metrics", metricsHandler)
			} else {
				metricsMux := http.NewServeMux()
				metricsMux.Handle("/metrics", metricsHandler)
				servers = append(servers, &http.Server{Addr: cfg.MetricsAddr, Handler: metricsMux})
			}

			ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			chain, _ := chains.Name(cfg.ChainID.Uint64())
			logger.Info("Starting liquidator", "chain", chain, "listen_addr", listenAddr, "metrics_addr", cfg.MetricsAddr)
			return runServers(ctx, logger, servers)
		},
	}
}

// runServers serves until ctx is done or one server fails, then shuts all of
// them down.
func runServers(ctx context.Context, logger *slog.Logger, servers []*http.Server) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("HTTP server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	err := g.Wait()
	logger.Info("Liquidator stopped", "error", err)
	return err
}
