package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"net/url"

	"killstats/internal/config"
	"killstats/internal/constants"

	"github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Connection options understood by go-sqlite3.
var dsnOptions = url.Values{
	"_journal_mode": {"WAL"},
	"_synchronous":  {"NORMAL"},
	"_busy_timeout": {"5000"},
}

// driverName is go-sqlite3 with cachePragmas applied to every new connection
// of the pool.
const driverName = "sqlite3_killstats"

var cachePragmas = []string{
	"PRAGMA cache_size = -16000",
	"PRAGMA temp_store = MEMORY",
}

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, pragma := range cachePragmas {
				if _, err := conn.Exec(pragma, nil); err != nil {
					return fmt.Errorf("failed to apply %q: %w", pragma, err)
				}
			}
			return nil
		},
	})
}

func New(cfg *config.Config, logger zerolog.Logger) (*sql.DB, error) {
	return Open(cfg.CacheDBPath, logger)
}

// Open connects to the sqlite cache at path and applies the embedded
// migrations.
func Open(path string, logger zerolog.Logger) (*sql.DB, error) {
	logger = logger.With().Str("path", path).Logger()
	logger.Info().Msg("opening cache database")

	db, err := sql.Open(driverName, "file:"+path+"?"+dsnOptions.Encode())
	if err != nil {
		logger.Error().Err(err).Msg("failed to open cache database")
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(constants.DBMaxOpenConns)
	db.SetMaxIdleConns(constants.DBMaxIdleConns)
	db.SetConnMaxLifetime(constants.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(constants.DBMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), constants.DatabaseTimeout)
	defer cancel()

	if err := migrate(ctx, db, logger); err != nil {
		logger.Error().Err(err).Msg("failed to migrate cache database")
		db.Close()
		return nil, err
	}

	logger.Info().Msg("cache database ready")
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, r := range results {
		logger.Debug().Int64("version", r.Source.Version).Dur("took", r.Duration).Msg("migration applied")
	}
	return nil
}
