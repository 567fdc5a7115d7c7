package db

import (
	"adventcal/config"
	"context"
	"fmt"
)

// Open creates the document store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (DocumentStore, error) {
	var (
		store DocumentStore
		err   error
	)
	switch cfg.StoreDriver {
	case config.DriverFile:
		var fs *FileStore
		if fs, err = NewFileStore(cfg); err == nil {
			store = fs
		}
	case config.DriverSQLite:
		var s *SQLiteStore
		if s, err = NewSQLiteStore(ctx, cfg.SQLitePath); err == nil {
			store = s
		}
	case config.DriverPostgres:
		var s *PostgresStore
		if s, err = NewPostgresStore(ctx, cfg.PostgresDSN); err == nil {
			store = s
		}
	case config.DriverFirestore:
		var s *FirestoreStore
		if s, err = NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile); err == nil {
			store = s
		}
	default:
		err = fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
