package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/crivera/joistsync/internal/config"
	"github.com/crivera/joistsync/internal/service"
	"github.com/crivera/joistsync/internal/storage"
)

// initStorage opens the configured database and brings the schema current.
func initStorage(ctx context.Context) (service.Storage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/joistsync/joistsync.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// ingestionDateLayouts are the accepted forms of the --date flag. The
// underscore form matches how export files have historically been named.
var ingestionDateLayouts = []string{"2006_01_02", "2006-01-02"}

// parseIngestionDate parses the --date flag. Empty means today.
func parseIngestionDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	for _, layout := range ingestionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY_MM_DD or YYYY-MM-DD)", s)
}
