// Package main - Entry point for the freight rating server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"freight-rating/api"
	"freight-rating/core/quoting"
	"freight-rating/internal/config"
	"freight-rating/internal/logging"
	"freight-rating/internal/metrics"
)

const version = "1.0.0"

var (
	cfgFile      string
	addr         string
	rateCardFile string
)

var rootCmd = &cobra.Command{
	Use:   "rating-server",
	Short: "Serve freight quotes over HTTP",
	Long: `rating-server exposes the freight rating engine as a JSON API.

Send SIGHUP to reload the rate card without restarting.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (default is $RATING_CONFIG or $HOME/.freight-rating.json)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.Flags().StringVar(&rateCardFile, "ratecard", "", "HCL rate card (overrides rate_card.path)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ResolvePath(cfgFile))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if rateCardFile != "" {
		cfg.RateCard.Path = rateCardFile
	}
	config.Set(cfg)

	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logging.Sync()

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(&metrics.Config{Namespace: cfg.Metrics.Namespace})
	}

	svc, err := quoting.Open(
		quoting.WithRateCardPath(cfg.RateCard.Path),
		quoting.WithCurrency(cfg.Output.Currency),
		quoting.WithLogger(logging.Named("quoting")),
		quoting.WithMetrics(m),
	)
	if err != nil {
		logging.Error("Failed to load rate card", zap.String("path", cfg.RateCard.Path), zap.Error(err))
		return err
	}

	handler := api.NewServer(svc, api.Options{
		Version: version,
		Logger:  logging.Named("http"),
		Metrics: m,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info("Starting rating server",
			zap.String("version", version),
			zap.String("addr", cfg.Server.Addr),
			zap.Bool("metrics", m != nil),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reload:
			logging.Info("Reloading rate card", zap.String("path", cfg.RateCard.Path))
			if err := svc.Reload(context.Background()); err != nil {
				logging.Warn("Keeping previous rate card", zap.String("path", cfg.RateCard.Path))
			}
		case err, ok := <-serverErr:
			if ok {
				logging.Error("Server failed", zap.Error(err))
				return err
			}
			return nil
		case sig := <-quit:
			logging.Info("Shutting down server...", zap.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(),
				time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logging.Error("Server forced to shutdown", zap.Error(err))
				return err
			}
			logging.Info("Server exited")
			return nil
		}
	}
}
