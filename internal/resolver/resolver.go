package resolver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
	"github.com/Never2333/tfl-status/internal/stations"
)

// DefaultMinQueryLength is the shortest query, in runes, that is searched
const DefaultMinQueryLength = 2

// Options tunes the resolver
type Options struct {
	MinQueryLength int
	QueryTimeout   time.Duration
	EmptyCacheTTL  time.Duration // how long "nothing found" is remembered

	// PartialCacheTTL caps the TTL of results a tier reports as partial;
	// zero leaves them uncached
	PartialCacheTTL time.Duration
}

// Resolver runs searches through the cache and then the tier chain in order
type Resolver struct {
	cache *ResultCache
	links []Link
	opts  Options
	log   *slog.Logger
}

// New creates a resolver over links, tried in order. cache may be nil.
func New(cache *ResultCache, opts Options, links ...Link) *Resolver {
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = DefaultMinQueryLength
	}
	return &Resolver{cache: cache, links: links, opts: opts, log: logger.With("resolver")}
}

// Search returns stations matching raw, best first. It never fails: when
// every tier fails or finds nothing the result is an empty list. Cancelling
// ctx abandons the query without writing to the cache.
func (r *Resolver) Search(ctx context.Context, raw string) []stations.Station {
	metrics.SearchRequestsTotal.Inc()
	start := time.Now()
	defer func() {
		metrics.SearchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	text := strings.TrimSpace(raw)
	if utf8.RuneCountInString(text) < r.opts.MinQueryLength {
		metrics.SearchShortQueryTotal.Inc()
		return []stations.Station{}
	}
	q := Query{Raw: text, Normalized: stations.Normalize(text)}

	if r.cache != nil {
		if list, ok := r.cache.Get(ctx, q.Normalized); ok {
			return list
		}
	}

	if r.opts.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.QueryTimeout)
		defer cancel()
	}

	for _, l := range r.links {
		if ctx.Err() != nil {
			break
		}
		name := l.Tier.Name()
		list, err := l.Tier.Resolve(ctx, q)
		ttl := l.TTL
		if errors.Is(err, ErrPartial) && len(list) > 0 {
			r.log.Debug("partial tier result", "tier", name, "query", q.Raw, "stations", len(list))
			ttl = min(ttl, r.opts.PartialCacheTTL)
			err = nil
		}
		if err != nil {
			metrics.SearchTierFailTotal.WithLabelValues(name).Inc()
			r.log.Debug("tier failed", "tier", name, "query", q.Raw, "error", err)
			continue
		}
		if len(list) == 0 {
			continue
		}
		metrics.SearchTierHitsTotal.WithLabelValues(name).Inc()
		r.store(ctx, q.Normalized, list, ttl)
		return list
	}

	metrics.SearchEmptyTotal.Inc()
	if ctx.Err() != nil {
		r.log.Debug("query abandoned", "query", q.Raw, "error", ctx.Err())
		return []stations.Station{}
	}
	r.log.Info("no station matched", "query", q.Raw)
	r.store(ctx, q.Normalized, nil, r.opts.EmptyCacheTTL)
	return []stations.Station{}
}

func (r *Resolver) store(ctx context.Context, key string, list []stations.Station, ttl time.Duration) {
	if r.cache == nil || ctx.Err() != nil {
		return
	}
	r.cache.Set(ctx, key, list, ttl)
}
