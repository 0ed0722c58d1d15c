package database_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"killstats/internal/database"

	"github.com/rs/zerolog"
)

func TestOpenAppliesPragmasToEveryConnection(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	conns := make([]*sql.Conn, 3)
	for i := range conns {
		conn, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn() error: %v", err)
		}
		defer conn.Close()
		conns[i] = conn
	}

	for i, conn := range conns {
		var cacheSize, tempStore int
		if err := conn.QueryRowContext(ctx, "PRAGMA cache_size").Scan(&cacheSize); err != nil {
			t.Fatalf("conn %d: cache_size error: %v", i, err)
		}
		if err := conn.QueryRowContext(ctx, "PRAGMA temp_store").Scan(&tempStore); err != nil {
			t.Fatalf("conn %d: temp_store error: %v", i, err)
		}
		if cacheSize != -16000 {
			t.Errorf("conn %d: cache_size = %d, want -16000", i, cacheSize)
		}
		if tempStore != 2 {
			t.Errorf("conn %d: temp_store = %d, want 2 (memory)", i, tempStore)
		}
	}
}

func TestOpenRunsMigrations(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer db.Close()

	var version int64
	if err := db.QueryRow("SELECT MAX(version_id) FROM goose_db_version").Scan(&version); err != nil {
		t.Fatalf("goose version query error: %v", err)
	}
	if version < 1 {
		t.Errorf("migration version = %d", version)
	}
}
