package cli

import (
	"adventcal/api"
	"adventcal/config"
	"adventcal/db"
	"adventcal/utils"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(cfg *config.Config) *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// flags override the environment
			if err := cfg.Resolve(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVar(&cfg.ListenAddress, "address", cfg.ListenAddress, "Listen address")
	serveCmd.Flags().StringVarP(&cfg.ListenPort, "port", "p", cfg.ListenPort, "Listen port")
	serveCmd.Flags().StringVar(&cfg.StoreDriver, "driver", cfg.StoreDriver, "Store driver: file, sqlite, postgres or firestore")
	serveCmd.Flags().StringVar(&cfg.DbFilePath, "db-file", cfg.DbFilePath, "JSON file for the file driver")
	serveCmd.Flags().StringVar(&cfg.SQLitePath, "sqlite-path", cfg.SQLitePath, "Database file for the sqlite driver")
	serveCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	serveCmd.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or console")
	return serveCmd
}

// runServer serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down and closes the store.
func runServer(ctx context.Context, cfg *config.Config) error {
	utils.SetupLogger(cfg.LogLevel, cfg.LogFormat)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	store, err := db.Open(ctx, cfg)
	if err != nil {
		log.Error().Stack().Err(err).Str("driver", cfg.StoreDriver).Msg("store unavailable")
		return fmt.Errorf("failed to initialize %s store: %w", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Stack().Err(err).Msg("failed to close store")
		}
	}()

	repo := db.NewRepository(store)
	router := api.NewRouter(repo, cfg, api.NewMetrics())

	// --- Start Server ---
	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", listenAddr).Str("driver", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Stack().Err(err).Msg("http server failed")
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Stack().Err(err).Msg("server forced to shutdown")
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
