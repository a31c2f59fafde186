package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spamid/spam-identifier/pkg/filter"
	"github.com/spamid/spam-identifier/pkg/metrics"
	"github.com/spamid/spam-identifier/pkg/milter"
	"github.com/spf13/cobra"
)

var (
	milterNetwork string
	milterAddress string
	milterMetrics string
)

var milterCmd = &cobra.Command{
	Use:   "milter",
	Short: "Start milter server for Postfix/Sendmail integration",
	Long: `Learn the configured corpus (milter.training), then classify the body of
every message passed by the MTA through the milter protocol.

Each message gets <prefix>Class and <prefix>Scores headers; messages whose
label is listed in milter.reject_labels are rejected with 550.

Example usage:
  spamid milter --config /etc/spamid/milter.yaml
  spamid milter --network tcp --address 127.0.0.1:7357 --metrics :9108

For Postfix integration, add to main.cf:
  smtpd_milters = inet:127.0.0.1:7357
  non_smtpd_milters = inet:127.0.0.1:7357
  milter_default_action = accept`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("network") {
			cfg.Milter.Network = milterNetwork
		}
		if cmd.Flags().Changed("address") {
			cfg.Milter.Address = milterAddress
		}
		if cmd.Flags().Changed("metrics") {
			cfg.Metrics.Enabled = milterMetrics != ""
			cfg.Metrics.Address = milterMetrics
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		spamFilter, err := filter.NewSpamFilterWithConfig(cfg,
			filter.WithLogger(logger),
			filter.WithProfiler(prof),
		)
		if err != nil {
			return err
		}
		defer spamFilter.Close()

		training := cfg.Milter.Training
		if err := spamFilter.Train(training.SpamPattern, training.SpamCount, training.HamPattern, training.HamCount); err != nil {
			return fmt.Errorf("failed to train: %w", err)
		}

		server, err := milter.NewServer(cfg, spamFilter, logger)
		if err != nil {
			return fmt.Errorf("failed to create milter server: %w", err)
		}

		listener, err := net.Listen(cfg.Milter.Network, cfg.Milter.Address)
		if err != nil {
			return fmt.Errorf("failed to create listener: %w", err)
		}
		defer listener.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.Metrics.Enabled {
			metricsSrv := startMetricsServer(cfg.Metrics.Address)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				metricsSrv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("📈 Metrics: http://%s/metrics\n", cfg.Metrics.Address)
		}

		fmt.Printf("📧 spamid milter listening on %s://%s\n", cfg.Milter.Network, cfg.Milter.Address)
		fmt.Printf("🎯 Reject labels: %v\n", cfg.Milter.RejectLabels)
		if configFile != "" {
			fmt.Printf("⚙️  Configuration: %s\n", configFile)
		}
		fmt.Printf("🚀 Press Ctrl+C to stop\n\n")

		err = server.Serve(ctx, listener)
		if errors.Is(err, context.Canceled) {
			fmt.Printf("\n✅ Milter server stopped gracefully\n")
			return nil
		}
		return err
	},
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("address", addr).Msg("metrics server failed")
		}
	}()
	return srv
}

func init() {
	milterCmd.Flags().StringVarP(&milterNetwork, "network", "n", "", "Network type (tcp or unix)")
	milterCmd.Flags().StringVarP(&milterAddress, "address", "a", "", "Bind address (e.g., 127.0.0.1:7357 or /tmp/spamid.sock)")
	milterCmd.Flags().StringVar(&milterMetrics, "metrics", "", "Serve Prometheus metrics on this address")
}
