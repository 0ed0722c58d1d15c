package fx

import (
	"killstats/internal/api"
	"killstats/internal/config"
	"killstats/internal/controller"
	"killstats/internal/database"
	"killstats/internal/logger"
	"killstats/internal/repository"
	"killstats/internal/server"
	"killstats/internal/service"

	"go.uber.org/fx"
)

// ProvideSource exposes the stats service as the controllers' data source.
func ProvideSource(svc *service.StatsService) controller.Source {
	return svc
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewSnapshotRepository),
	// api client
	fx.Provide(api.NewKillstatsClient),
	// svc
	fx.Provide(service.NewStatsService),
	fx.Provide(ProvideSource),
	// server
	fx.Provide(server.NewSessionStore),
	fx.Provide(server.NewDashboardServer),
)
