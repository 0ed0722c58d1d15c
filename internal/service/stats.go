package service

import (
	"context"
	"fmt"
	"time"

	"killstats/internal/api"
	"killstats/internal/config"
	"killstats/internal/constants"
	"killstats/internal/domain"
	"killstats/internal/repository"
	"killstats/internal/resources"

	"github.com/rs/zerolog"
)

// StatsService fetches dashboard payloads for an entity and period. Stats
// and halls go through the snapshot cache; table pages never do.
type StatsService struct {
	client *api.KillstatsClient
	repo   *repository.SnapshotRepository
	prefix string

	cacheTTL       time.Duration
	closedMonthTTL time.Duration
	now            func() time.Time

	logger zerolog.Logger
}

func NewStatsService(client *api.KillstatsClient, repo *repository.SnapshotRepository, cfg *config.Config, logger zerolog.Logger) *StatsService {
	return &StatsService{
		client:         client,
		repo:           repo,
		prefix:         cfg.APIPrefix,
		cacheTTL:       cfg.CacheTTL,
		closedMonthTTL: cfg.ClosedMonthTTL,
		now:            time.Now,
		logger:         logger,
	}
}

func (s *StatsService) Resources(entity domain.Entity, period domain.Period) resources.ResourceSet {
	return resources.Build(s.prefix, entity, period)
}

func (s *StatsService) Stats(ctx context.Context, entity domain.Entity, period domain.Period) (domain.Stats, error) {
	url := s.Resources(entity, period).StatsAll
	return cached(ctx, s, resources.StatsAll, url, entity, period, api.DecodeStats)
}

func (s *StatsService) Halls(ctx context.Context, entity domain.Entity, period domain.Period) (*domain.Halls, error) {
	url := s.Resources(entity, period).Halls
	return cached(ctx, s, resources.Halls, url, entity, period, api.DecodeHalls)
}

func (s *StatsService) Killmails(ctx context.Context, entity domain.Entity, period domain.Period, mode resources.Resource, q domain.TableQuery) (*domain.KillmailPage, error) {
	if mode != resources.Kills && mode != resources.Losses {
		return nil, fmt.Errorf("unknown killmail table %q", mode)
	}

	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	q = q.Normalize(constants.MaxPageLength)
	url := resources.Killmail(s.prefix, entity, period, mode)

	page, err := s.client.GetKillmails(apiCtx, url, q)
	if err != nil {
		s.logger.Error().Err(err).Str("url", url).Msg("failed to fetch killmail page")
		return nil, fmt.Errorf("failed to fetch %s: %w", mode, err)
	}
	return page, nil
}

// Partial fetches an HTML partial (top lists shown in modals) and returns
// its status and raw body, whatever the status.
func (s *StatsService) Partial(ctx context.Context, path string) (int, []byte, error) {
	apiCtx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	status, body, err := s.client.GetPartial(apiCtx, path)
	if err != nil {
		s.logger.Error().Err(err).Str("url", path).Msg("failed to fetch partial")
		return 0, nil, fmt.Errorf("failed to fetch partial: %w", err)
	}
	return status, body, nil
}

// Invalidate forgets every cached payload of entity for period.
func (s *StatsService) Invalidate(ctx context.Context, entity domain.Entity, period domain.Period) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	n, err := s.repo.InvalidatePeriod(ctx, entity, period)
	if err != nil {
		return err
	}
	s.logger.Info().Str("entity", entity.String()).Str("period", period.String()).Int64("snapshots", n).Msg("cache invalidated")
	return nil
}

func (s *StatsService) PurgeExpired(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	_, err := s.repo.PurgeExpired(ctx, s.now())
	return err
}

func (s *StatsService) ttlFor(period domain.Period) time.Duration {
	if period.IsCurrent(s.now()) {
		return s.cacheTTL
	}
	return s.closedMonthTTL
}

// cached serves url from the snapshot cache when possible. Cache errors are
// logged and never fail the request; only decodable payloads are stored.
func cached[T any](ctx context.Context, s *StatsService, res resources.Resource, url string, entity domain.Entity, period domain.Period, decode func([]byte) (T, error)) (T, error) {
	var zero T
	log := s.logger.With().Str("resource", string(res)).Str("url", url).Logger()

	dbCtx, dbCancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	snap, err := s.repo.Get(dbCtx, url, s.now())
	dbCancel()
	if err != nil {
		log.Warn().Err(err).Msg("snapshot lookup failed, fetching from API")
	}
	if snap != nil {
		v, err := decode(snap.Body)
		if err == nil {
			log.Debug().Time("fetched_at", snap.FetchedAt).Msg("returning cached snapshot")
			return v, nil
		}
		log.Warn().Err(err).Msg("cached snapshot unreadable, fetching from API")
	}

	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	body, err := s.client.Get(apiCtx, url, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch from API")
		return zero, fmt.Errorf("failed to fetch %s: %w", res, err)
	}

	v, err := decode(body)
	if err != nil {
		log.Error().Err(err).Msg("unexpected payload")
		return zero, err
	}

	now := s.now()
	dbCtx, dbCancel = context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer dbCancel()
	if err := s.repo.Put(dbCtx, &repository.Snapshot{
		URL:       url,
		Resource:  string(res),
		Entity:    entity,
		Period:    period,
		Body:      body,
		FetchedAt: now,
		ExpiresAt: now.Add(s.ttlFor(period)),
	}); err != nil {
		log.Warn().Err(err).Msg("failed to store snapshot")
	}

	return v, nil
}

// TopCategory returns the partial URL of the top list for category.
func (s *StatsService) TopCategory(category string, entity domain.Entity, period domain.Period) string {
	return resources.TopCategory(s.prefix, category, entity, period)
}
