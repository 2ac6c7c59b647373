package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/energyplan-orchestrator/internal/app"
	"github.com/cuemby/energyplan-orchestrator/internal/config"
	"github.com/cuemby/energyplan-orchestrator/internal/httpapi"
	"github.com/cuemby/energyplan-orchestrator/internal/logging"
	"github.com/cuemby/energyplan-orchestrator/internal/metrics"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "orchestratord",
	Short:   "Energy planning job orchestrator",
	Long:    "orchestratord runs the HTTP surface that submits, tracks, and streams progress for demand forecast, load profile, and PyPSA optimization jobs.",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("orchestratord version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))

	serveCmd.Flags().String("config", "", "Path to a YAML configuration file")
	serveCmd.Flags().String("bind-addr", "", "HTTP surface listen address (overrides config)")
	serveCmd.Flags().String("project-root", "", "Artifact store project root (overrides config)")
	serveCmd.Flags().Int("worker-concurrency", 0, "Maximum concurrent compute workers (0 = autodetect)")
	serveCmd.Flags().String("log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().Bool("log-json", false, "Emit JSON-formatted logs")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		if v, _ := cmd.Flags().GetString("bind-addr"); v != "" {
			cfg.BindAddr = v
		}
		if v, _ := cmd.Flags().GetString("project-root"); v != "" {
			cfg.ProjectRoot = v
		}
		if v, _ := cmd.Flags().GetInt("worker-concurrency"); v != 0 {
			cfg.WorkerConcurrency = v
		}
		if v, _ := cmd.Flags().GetString("log-level"); v != "" {
			cfg.LogLevel = v
		}
		if v, _ := cmd.Flags().GetBool("log-json"); v {
			cfg.LogJSON = v
		}

		logging.Init(logging.Config{
			Level:      logging.Level(cfg.LogLevel),
			JSONOutput: cfg.LogJSON,
		})
		log := logging.WithComponent("orchestratord")
		metrics.Register(nil)

		a, err := app.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to wire application: %w", err)
		}
		defer a.Shutdown()

		router := httpapi.NewRouter(a)
		server := &http.Server{
			Addr:    cfg.BindAddr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("bindAddr", cfg.BindAddr).Str("projectRoot", cfg.ProjectRoot).Msg("serving")
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			log.Info().Msg("shutdown signal received")
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		log.Info().Msg("shutdown complete")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("orchestratord version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
	},
}
