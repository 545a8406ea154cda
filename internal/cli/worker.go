package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/claimdesk/internal/wire"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run queue workers",
	Long: `Run the job workers until interrupted.

--queue selects notifications, escalations or all. With a positive
--sweep-interval the worker also re-enqueues timeout checks for expired
escalations on that period.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		queue, _ := cmd.Flags().GetString("queue")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		cfg := wire.Config()
		logger := wire.Logger()

		sweepInterval := cfg.Worker.SweepInterval
		if cmd.Flags().Changed("sweep-interval") {
			sweepInterval, _ = cmd.Flags().GetDuration("sweep-interval")
		}
		if !cmd.Flags().Changed("metrics-addr") {
			metricsAddr = cfg.Worker.MetricsAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		switch queue {
		case "notifications":
			g.Go(func() error { return wire.NotificationWorker().Run(ctx) })
		case "escalations":
			g.Go(func() error { return wire.EscalationWorker().Run(ctx) })
		case "all":
			g.Go(func() error { return wire.NotificationWorker().Run(ctx) })
			g.Go(func() error { return wire.EscalationWorker().Run(ctx) })
		default:
			return fmt.Errorf("unknown queue %q (must be notifications, escalations or all)", queue)
		}

		if sweepInterval > 0 {
			g.Go(func() error { return runSweep(ctx, sweepInterval, logger) })
		}
		if metricsAddr != "" {
			g.Go(func() error { return serveMetrics(ctx, metricsAddr, logger) })
		}

		logger.Info("worker started",
			zap.String("queue", queue),
			zap.Duration("sweep_interval", sweepInterval),
			zap.String("metrics_addr", metricsAddr),
		)
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("worker stopped")
		return nil
	},
}

func runSweep(ctx context.Context, interval time.Duration, logger *zap.Logger) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := wire.SweepService().SweepExpired(ctx); err != nil {
				logger.Error("sweep failed", zap.Error(err))
			}
		}
	}
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", wire.MetricsHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

// WorkerCmd returns the worker command
func WorkerCmd() *cobra.Command {
	workerCmd.Flags().StringP("queue", "q", "all", "Queue to work: notifications, escalations or all")
	workerCmd.Flags().Duration("sweep-interval", 0, "Run the expired-escalation sweep on this period (0 disables)")
	workerCmd.Flags().String("metrics-addr", "", "Address for /metrics (default from config)")
	return workerCmd
}
