// Package app wires the configured services shared by the API server and
// the tubectl tool.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/Never2333/tfl-status/internal/config"
	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/resolver"
	"github.com/Never2333/tfl-status/internal/snapshot"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/internal/tfl"
	"github.com/Never2333/tfl-status/repository"
)

// Services is the set of long-lived components built from a Config
type Services struct {
	Config    *config.Config
	Client    *tfl.Client
	Catalog   *stations.Catalog
	Builder   *stations.Builder
	Directory *stations.Directory
	Store     snapshot.Store
	Holder    *snapshot.Holder
	Aliases   *resolver.AliasTable
	Cache     *resolver.ResultCache
	Resolver  *resolver.Resolver

	closers []func()
	log     *slog.Logger
}

// New builds every service. Only a snapshot store that cannot be opened
// is fatal; Redis is optional and only logged when unreachable.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{Config: cfg, log: logger.With("app")}

	s.Catalog = stations.TubeCatalog()
	if cfg.Mode != s.Catalog.Mode() {
		s.log.Warn("only the tube catalog is built in, ignoring TFL_MODE", "mode", cfg.Mode)
	}
	s.Client = tfl.NewClient(cfg.TfLBaseURL, cfg.TfLAppID, cfg.TfLAppKey, cfg.HTTPTimeout)
	s.Builder = stations.NewBuilder(s.Client, s.Catalog, cfg.BuildWorkers)
	s.Directory = stations.NewDirectory(s.Builder, stations.DirectoryOptions{
		StaleAfter:     cfg.IndexStaleAfter,
		RebuildBackoff: cfg.RebuildBackoff,
		BuildTimeout:   cfg.BuildTimeout,
	})

	store, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}
	s.Store = store
	s.Holder = snapshot.NewHolder(store, s.Catalog, cfg.SnapshotMaxAge())

	aliases, err := resolver.DefaultAliasTable(s.Catalog)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load alias table: %w", err)
	}
	s.Aliases = aliases

	s.Cache = resolver.NewResultCache(cfg.CacheSize, nil)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.log.Warn("redis unreachable, result cache stays local", "addr", cfg.RedisAddr, "error", err)
			rdb.Close()
		} else {
			s.Cache.WithRedis(rdb)
			s.closers = append(s.closers, func() { rdb.Close() })
			s.log.Info("shared result cache enabled", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		}
	}

	s.Resolver = resolver.New(s.Cache, resolver.Options{
		MinQueryLength:  cfg.MinQueryLength,
		QueryTimeout:    cfg.QueryTimeout,
		EmptyCacheTTL:   cfg.EmptyCacheTTL,
		PartialCacheTTL: cfg.DegradedCacheTTL,
	},
		resolver.Link{Tier: resolver.NewIndexTier(s.Directory, cfg.MaxResults)},
		resolver.Link{Tier: resolver.NewLiveTier(s.Client, s.Catalog, resolver.LiveOptions{
			Timeout:  cfg.LiveTimeout,
			MaxHits:  cfg.LiveMaxHits,
			MaxDepth: cfg.HierarchyDepth,
			Limit:    cfg.MaxResults,
		}), TTL: cfg.CacheTTL},
		resolver.Link{Tier: resolver.NewSnapshotTier(s.Holder, cfg.MaxResults), TTL: cfg.DegradedCacheTTL},
		resolver.Link{Tier: resolver.NewAliasTier(s.Aliases, cfg.MaxResults), TTL: cfg.DegradedCacheTTL},
	)
	return s, nil
}

func (s *Services) openStore(ctx context.Context) (snapshot.Store, error) {
	cfg := s.Config
	switch cfg.SnapshotBackend {
	case "sqlite":
		store, err := repository.NewSQLiteSnapshotStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite snapshot store: %w", err)
		}
		s.closers = append(s.closers, func() { store.Close() })
		return store, nil
	case "postgres":
		store, err := repository.NewPostgresSnapshotStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres snapshot store: %w", err)
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return snapshot.NewFileStore(cfg.SnapshotPath), nil
	}
}

// FileStore returns the JSON file store when that backend is configured
func (s *Services) FileStore() (*snapshot.FileStore, bool) {
	fs, ok := s.Store.(*snapshot.FileStore)
	return fs, ok
}

// Close releases database and cache connections
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
