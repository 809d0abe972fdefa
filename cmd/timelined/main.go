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

	sddaemon "github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/modoterra/sightline/internal/buildinfo"
	"github.com/modoterra/sightline/pkg/config"
	"github.com/modoterra/sightline/pkg/daemon"
	"github.com/modoterra/sightline/pkg/storage"
)

const statsInterval = 10 * time.Second

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "timelined",
	Short:        "Serve saved timelines to sightline over a Unix socket",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if errs := config.Validate(cfg); len(errs) > 0 {
			return fmt.Errorf("invalid config: %w", errors.Join(errs...))
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Logging.SlogLevel()}))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := run(ctx, cfg, logger); err != nil {
			logger.Error("daemon error", "err", err)
			return err
		}
		logger.Info("shutting down")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String("timelined"))
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "", "path to sightline.yaml")
	rootCmd.AddCommand(versionCmd)
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	st, err := storage.OpenStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("storage opened", "driver", cfg.Storage.Driver)

	metrics := daemon.NewMetrics()
	d := daemon.New(cfg.Socket, st, metrics, logger)
	defer d.Shutdown()

	g, ctx := errgroup.WithContext(ctx)

	logger.Info("starting timelined", "version", buildinfo.Version, "socket", cfg.Socket)
	g.Go(func() error {
		return d.Run(ctx)
	})
	g.Go(func() error {
		daemon.NewStatsLoop(d, statsInterval, logger).Run(ctx)
		return nil
	})
	g.Go(func() error {
		if !waitForSocket(ctx, cfg.Socket) {
			return nil
		}
		if ok, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
			logger.Warn("sd_notify failed", "err", err)
		} else if ok {
			logger.Debug("notified systemd")
		}
		return nil
	})

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

// waitForSocket reports whether path appeared before ctx was done.
func waitForSocket(ctx context.Context, path string) bool {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(path); err == nil {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
