package cache

import (
	"context"
	"fmt"
	"path/filepath"

	"trendmerch/core"
	"trendmerch/db"
	"trendmerch/logging"
)

// NewOpener selects the backend configured in cfg. It returns a nil Opener
// when caching is disabled. repo, when non-nil, is shared by the SQLite
// backend instead of opening a second connection.
func NewOpener(cfg *core.Config, repo *db.Repository, logger *logging.Logger) (Opener, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache: config cannot be nil")
	}
	if !cfg.CacheEnabled {
		return nil, nil
	}

	switch cfg.CacheBackend {
	case core.CacheBackendFile:
		path := filepath.Join(cfg.CacheDir, DefaultFileName)
		return func(context.Context) (Store, error) {
			store, err := OpenFileStore(path, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		}, nil
	case core.CacheBackendSQLite:
		if repo != nil {
			return func(context.Context) (Store, error) {
				store, err := NewSQLiteStore(repo)
				if err != nil {
					return nil, err
				}
				return store, nil
			}, nil
		}
		path := cfg.DatabasePath
		return func(context.Context) (Store, error) {
			store, err := OpenSQLiteStore(path)
			if err != nil {
				return nil, err
			}
			return store, nil
		}, nil
	default:
		return nil, fmt.Errorf("cache: unknown backend %q", cfg.CacheBackend)
	}
}
