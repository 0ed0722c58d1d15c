package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"killstats/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// Snapshot is one cached backend response body.
type Snapshot struct {
	ID        string
	URL       string
	Resource  string
	Entity    domain.Entity
	Period    domain.Period
	Body      []byte
	FetchedAt time.Time
	ExpiresAt time.Time
}

type SnapshotRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSnapshotRepository(sqlDB *sql.DB, logger zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// Get returns the cached body for url if it has not expired at now.
func (r *SnapshotRepository) Get(ctx context.Context, url string, now time.Time) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, url, resource, entity_kind, entity_id, month, year, body, fetched_at, expires_at
		FROM snapshots
		WHERE url = ? AND expires_at > ?`, url, now.Unix())

	var (
		s                  Snapshot
		kind               string
		fetchedAt, expires int64
	)
	err := row.Scan(&s.ID, &s.URL, &s.Resource, &kind, &s.Entity.ID, &s.Period.Month, &s.Period.Year, &s.Body, &fetchedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Str("url", url).Msg("failed to read snapshot")
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	s.Entity.Kind = domain.EntityKind(kind)
	s.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	return &s, nil
}

func (r *SnapshotRepository) Put(ctx context.Context, s *Snapshot) error {
	if s.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		s.ID = id
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, url, resource, entity_kind, entity_id, month, year, body, fetched_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			body = excluded.body,
			fetched_at = excluded.fetched_at,
			expires_at = excluded.expires_at`,
		s.ID, s.URL, s.Resource, string(s.Entity.Kind), s.Entity.ID, s.Period.Month, s.Period.Year,
		s.Body, s.FetchedAt.Unix(), s.ExpiresAt.Unix())
	if err != nil {
		r.logger.Error().Err(err).Str("url", s.URL).Msg("failed to upsert snapshot")
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// InvalidatePeriod drops every snapshot of entity for period.
func (r *SnapshotRepository) InvalidatePeriod(ctx context.Context, entity domain.Entity, period domain.Period) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE entity_kind = ? AND entity_id = ? AND month = ? AND year = ?`,
		string(entity.Kind), entity.ID, period.Month, period.Year)
	if err != nil {
		return 0, fmt.Errorf("failed to invalidate snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (r *SnapshotRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	r.logger.Debug().Int64("purged", n).Msg("expired snapshots purged")
	return n, nil
}
