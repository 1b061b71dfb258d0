package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/yllada/goras/common"
	"github.com/yllada/goras/metrics"
	"github.com/yllada/goras/monitor"
	"github.com/yllada/goras/ras"
)

const metricsPath = "/metrics"

func (a *App) newExporterCmd() *cobra.Command {
	var (
		listen string
		record bool
	)

	cmd := &cobra.Command{
		Use:   "exporter",
		Short: "Serve connection metrics for Prometheus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.enumerator()
			if err != nil {
				return err
			}
			if listen == "" {
				listen = a.config.ExporterListen
			}

			handler, err := newMetricsHandler(e, a.logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a.keepRotatingLogs(ctx)
			if record {
				store, err := a.openHistory()
				if err != nil {
					return err
				}
				defer store.Close()

				mcfg := monitor.DefaultConfig()
				mcfg.Interval = a.config.PollInterval
				m := monitor.New(e, mcfg, a.logger)
				m.SetOnPoll(recordPoll(ctx, store, a.logger))
				m.Start()
				defer m.Stop()
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", listen, err)
			}
			cmd.Printf("Serving metrics on http://%s%s\n", ln.Addr(), metricsPath)
			return serveMetrics(ctx, ln, handler, a.logger)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&record, "record", false, "Also store statistics samples in the history database")
	return cmd
}

// newMetricsHandler builds the HTTP handler exposing the connection
// collector and the exporter's own process metrics.
func newMetricsHandler(e ras.ConnectionEnumerator, logger common.Logger) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if _, err := metrics.Register(reg, e, logger); err != nil {
		return nil, fmt.Errorf("failed to register collector: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		Registry: reg,
		Timeout:  common.ScrapeTimeout,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux, nil
}

// serveMetrics serves handler on ln until ctx is done.
func serveMetrics(ctx context.Context, ln net.Listener, handler http.Handler, logger common.Logger) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("Metrics exporter listening on %s", ln.Addr())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop exporter: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("Metrics exporter stopped")
	return nil
}
