package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/face-registry/internal/config"
	"github.com/kozaktomas/face-registry/internal/database/mariadb"
	"github.com/kozaktomas/face-registry/internal/database/postgres"
	"github.com/kozaktomas/face-registry/internal/database/sqlite"
	"github.com/kozaktomas/face-registry/internal/facematch"
	"github.com/kozaktomas/face-registry/internal/faces"
	"github.com/kozaktomas/face-registry/internal/records"
	"github.com/kozaktomas/face-registry/internal/registry"
)

// openStore opens the configured record store. The returned close function
// releases database connections and is never nil.
func openStore(ctx context.Context, cfg *config.Config) (records.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case "", "file":
		slog.Debug("using file store", "path", cfg.Store.Path)
		return records.NewFileStore(cfg.Store.Path), noop, nil
	case "memory":
		slog.Warn("using in-memory store, records are lost on exit")
		return records.NewMemoryStore(), noop, nil
	case "postgres":
		pool, err := postgres.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		slog.Debug("using PostgreSQL store")
		return pool.Records(), pool.Close, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		slog.Debug("using sqlite store", "path", cfg.Database.SQLitePath)
		return db.Records(), db.Close, nil
	case "mariadb":
		pool, err := mariadb.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		slog.Debug("using MariaDB store")
		return pool.Records(), pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown FACE_STORE_BACKEND %q", cfg.Store.Backend)
	}
}

// openExtractor creates the configured face extractor.
func openExtractor(cfg *config.Config) (faces.Extractor, func(), error) {
	switch cfg.Extractor.Backend {
	case "", "http":
		client := faces.NewClient(faces.ClientConfig{
			URL:          cfg.Extractor.URL,
			MaxImageSize: cfg.Extractor.MaxImageSize,
			RateLimit:    cfg.Extractor.RateLimit,
			Timeout:      cfg.Extractor.Timeout,
		})
		return client, func() {}, nil
	case "dlib":
		extractor, err := faces.NewDlibExtractor(cfg.Extractor.ModelsDir)
		if err != nil {
			return nil, func() {}, fmt.Errorf("creating dlib extractor: %w", err)
		}
		return extractor, extractor.Close, nil
	default:
		return nil, func() {}, fmt.Errorf("unknown EXTRACTOR_BACKEND %q", cfg.Extractor.Backend)
	}
}

// newMatcher builds the matcher from config. A positive tolerance overrides it.
func newMatcher(cfg *config.Config, tolerance float64) (*facematch.Matcher, error) {
	if tolerance <= 0 {
		tolerance = cfg.MatchTolerance()
	}
	matcher, err := facematch.NewMatcher(cfg.Match.Metric, tolerance)
	if err != nil {
		return nil, fmt.Errorf("creating matcher: %w", err)
	}
	return matcher, nil
}

// openService wires store, extractor and matcher into a registry service.
// Call the returned cleanup function when done.
func openService(ctx context.Context, cfg *config.Config, tolerance float64) (*registry.Service, func(), error) {
	matcher, err := newMatcher(cfg, tolerance)
	if err != nil {
		return nil, func() {}, err
	}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, func() {}, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}

	extractor, closeExtractor, err := openExtractor(cfg)
	if err != nil {
		_ = closeStore()
		return nil, func() {}, err
	}

	cleanup := func() {
		closeExtractor()
		if err := closeStore(); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}

	slog.Debug("registry ready",
		"store", cfg.Store.Backend, "extractor", cfg.Extractor.Backend,
		"metric", matcher.Metric(), "tolerance", matcher.Tolerance())
	return registry.NewService(store, extractor, matcher, slog.Default()), cleanup, nil
}
