package stations

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/tfl"
)

// ErrEmptyBuild means every bulk strategy failed or produced no stations
var ErrEmptyBuild = errors.New("stations: no bulk listing strategy produced stations")

// BulkClient is the part of the directory client used for bulk builds
type BulkClient interface {
	StopPointsByMode(ctx context.Context, mode string) ([]tfl.StopPoint, error)
	LinesByMode(ctx context.Context, mode string) ([]tfl.Line, error)
	LineStopPoints(ctx context.Context, lineID string) ([]tfl.StopPoint, error)
}

// Builder assembles a full Index from bulk listings
type Builder struct {
	client  BulkClient
	catalog *Catalog
	workers int
	now     func() time.Time
	log     *slog.Logger
}

// NewBuilder creates a builder. workers bounds concurrent per-line calls.
func NewBuilder(client BulkClient, catalog *Catalog, workers int) *Builder {
	if workers <= 0 {
		workers = 4
	}
	return &Builder{
		client:  client,
		catalog: catalog,
		workers: workers,
		now:     time.Now,
		log:     logger.With("builder"),
	}
}

type strategy struct {
	name string
	run  func(ctx context.Context) ([]Station, error)
}

// Build tries each bulk strategy in turn; the first non-empty one wins.
// A failing strategy counts as empty so the next one still runs.
func (b *Builder) Build(ctx context.Context) (*Index, error) {
	strategies := []strategy{
		{"stoppoint_mode", b.byMode},
		{"line_listing", b.byLineListing},
		{"line_catalog", b.byCatalog},
	}

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		list, err := s.run(ctx)
		if err != nil {
			b.log.Warn("bulk strategy failed", "strategy", s.name, "error", err)
			continue
		}
		if len(list) == 0 {
			b.log.Info("bulk strategy produced no stations", "strategy", s.name)
			continue
		}
		idx := NewIndex(list, b.now())
		b.log.Info("directory built",
			"strategy", s.name,
			"stations", idx.Len(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return idx, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrEmptyBuild
}

func (b *Builder) byMode(ctx context.Context) ([]Station, error) {
	points, err := b.client.StopPointsByMode(ctx, b.catalog.Mode())
	if err != nil {
		return nil, err
	}
	return b.toStations(points, ""), nil
}

func (b *Builder) byLineListing(ctx context.Context) ([]Station, error) {
	lines, err := b.client.LinesByMode(ctx, b.catalog.Mode())
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, l := range lines {
		if l.ID == "" {
			continue
		}
		if l.ModeName != "" && !strings.EqualFold(l.ModeName, b.catalog.Mode()) {
			continue
		}
		ids = append(ids, l.ID)
	}
	return b.fromLines(ctx, ids)
}

func (b *Builder) byCatalog(ctx context.Context) ([]Station, error) {
	return b.fromLines(ctx, b.catalog.IDs())
}

// fromLines aggregates per-line stop listings. A failing line is skipped.
func (b *Builder) fromLines(ctx context.Context, lineIDs []string) ([]Station, error) {
	if len(lineIDs) == 0 {
		return nil, nil
	}

	var (
		mu  sync.Mutex
		all []Station
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, id := range lineIDs {
		g.Go(func() error {
			points, err := b.client.LineStopPoints(gctx, id)
			if err != nil {
				b.log.Warn("line stop listing failed", "line", id, "error", err)
				return nil
			}
			list := b.toStations(points, id)
			b.log.Debug("line stop listing", "line", id, "stations", len(list))
			mu.Lock()
			all = append(all, list...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return all, nil
}

// toStations keeps station-granularity nodes of the mode. Stations listed
// under a line are known to be served by it even when their own line fields
// are empty.
func (b *Builder) toStations(points []tfl.StopPoint, viaLine string) []Station {
	out := make([]Station, 0, len(points))
	for _, sp := range points {
		n := NodeFromStopPoint(sp)
		if n.Kind != KindStation || !n.HasMode(b.catalog.Mode()) {
			continue
		}
		lines := DeriveLines(n, b.catalog)
		if viaLine != "" {
			lines = append(lines, b.catalog.Line(viaLine))
		}
		out = append(out, NewStation(n.ID, n.Name, lines))
	}
	return out
}
