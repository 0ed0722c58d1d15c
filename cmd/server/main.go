package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"killstats/internal/config"
	"killstats/internal/constants"
	fxmodules "killstats/internal/fx"
	"killstats/internal/middleware"
	"killstats/internal/server"
	"killstats/internal/service"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func main() {
	// LOG_LEVEL may live in .env and the logger is built before the config.
	_ = godotenv.Load()

	fx.New(
		fxmodules.Module,
		fx.Invoke(runServer),
	).Run()
}

func runServer(
	lc fx.Lifecycle,
	dashboard *server.DashboardServer,
	sessions *server.SessionStore,
	stats *service.StatsService,
	cfg *config.Config,
	db *sql.DB,
	logger zerolog.Logger,
) {
	router := dashboard.Router()
	rpcPath, rpcHandler := dashboard.Handler()
	router.PathPrefix(rpcPath).Handler(rpcHandler)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	requestIDMiddleware := middleware.RequestID(logger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: requestIDMiddleware(c.Handler(router)),
	}

	maintenanceCtx, stopMaintenance := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			go runMaintenance(maintenanceCtx, sessions, stats, logger)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			stopMaintenance()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}

			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

// runMaintenance evicts idle viewer sessions and expired cache snapshots.
func runMaintenance(ctx context.Context, sessions *server.SessionStore, stats *service.StatsService, logger zerolog.Logger) {
	ticker := time.NewTicker(constants.MaintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep(constants.SessionIdleTTL)
			if err := stats.PurgeExpired(ctx); err != nil {
				logger.Warn().Err(err).Msg("failed to purge expired snapshots")
			}
		}
	}
}
