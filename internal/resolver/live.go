package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/internal/tfl"
)

// SearchClient is the upstream surface used by per-query live resolution
type SearchClient interface {
	Search(ctx context.Context, query, mode string) ([]tfl.SearchMatch, error)
	StopPoint(ctx context.Context, id string) (*tfl.StopPoint, error)
}

// LiveOptions tunes per-query live resolution
type LiveOptions struct {
	Timeout  time.Duration // bounds the whole tier, search and hierarchy walks
	MaxHits  int           // upstream candidates resolved per query
	MaxDepth int
	Limit    int
	Workers  int
}

// LiveTier asks upstream's own fuzzy search, resolves every hit to
// station-granularity nodes concurrently, derives their lines and ranks.
type LiveTier struct {
	client  SearchClient
	catalog *stations.Catalog
	opts    LiveOptions
	log     *slog.Logger
}

// NewLiveTier creates the live tier
func NewLiveTier(client SearchClient, catalog *stations.Catalog, opts LiveOptions) *LiveTier {
	if opts.MaxHits <= 0 {
		opts.MaxHits = 8
	}
	if opts.Workers <= 0 {
		opts.Workers = opts.MaxHits
	}
	return &LiveTier{client: client, catalog: catalog, opts: opts, log: logger.With("live")}
}

func (t *LiveTier) Name() string { return "live" }

func (t *LiveTier) Resolve(ctx context.Context, q Query) ([]stations.Station, error) {
	if t.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.Timeout)
		defer cancel()
	}

	matches, err := t.client.Search(ctx, q.Raw, t.catalog.Mode())
	if err != nil {
		return nil, fmt.Errorf("live search %q: %w", q.Raw, err)
	}
	if len(matches) > t.opts.MaxHits {
		matches = matches[:t.opts.MaxHits]
	}

	hier := stations.NewHierarchyResolver(t.client, t.catalog.Mode(), t.opts.MaxDepth)
	resolved := make([][]stations.Node, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Workers)
	for i, m := range matches {
		g.Go(func() error {
			resolved[i] = hier.Resolve(gctx, m.ID)
			return nil
		})
	}
	g.Wait()
	var partial error
	if err := ctx.Err(); err != nil && len(matches) > 0 {
		t.log.Debug("live resolution cut short", "query", q.Raw, "error", err)
		partial = fmt.Errorf("live search %q: %w", q.Raw, ErrPartial)
	}

	candidates := t.merge(resolved)
	if len(candidates) == 0 {
		return nil, nil
	}
	if ranked := stations.Rank(q.Raw, candidates, t.opts.Limit); len(ranked) > 0 {
		return ranked, partial
	}
	// upstream matched on something our scoring does not see (an old name,
	// a code); keep its order
	limit := t.opts.Limit
	if limit <= 0 {
		limit = stations.DefaultLimit
	}
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, partial
}

// merge flattens resolved nodes into stations in upstream order, merging
// the lines of repeated ids
func (t *LiveTier) merge(resolved [][]stations.Node) []stations.Station {
	pos := make(map[string]int)
	var out []stations.Station
	for _, nodes := range resolved {
		for _, n := range nodes {
			lines := stations.DeriveLines(n, t.catalog)
			if i, ok := pos[n.ID]; ok {
				prev := out[i]
				out[i] = stations.NewStation(prev.ID, prev.DisplayName, append(append([]stations.Line{}, prev.Lines...), lines...))
				continue
			}
			pos[n.ID] = len(out)
			out = append(out, stations.NewStation(n.ID, n.Name, lines))
		}
	}
	return out
}
