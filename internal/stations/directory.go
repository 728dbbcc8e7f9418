package stations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
)

// ErrRebuildBackoff means a rebuild failed recently and no new attempt was made
var ErrRebuildBackoff = errors.New("stations: rebuild suppressed after recent failure")

const rebuildKey = "rebuild"

// IndexBuilder produces a complete index from upstream
type IndexBuilder interface {
	Build(ctx context.Context) (*Index, error)
}

// DirectoryOptions tunes staleness and rebuild behaviour
type DirectoryOptions struct {
	StaleAfter     time.Duration
	RebuildBackoff time.Duration
	BuildTimeout   time.Duration
	Now            func() time.Time
}

// Directory owns the current Index. Readers load it without locking; a
// rebuild swaps in a complete new Index or leaves the old one in place.
// Concurrent rebuild requests share a single in-flight build.
type Directory struct {
	builder IndexBuilder
	opts    DirectoryOptions
	current atomic.Pointer[Index]
	group   singleflight.Group
	log     *slog.Logger

	mu          sync.Mutex
	lastFailure time.Time
}

// NewDirectory creates an empty directory
func NewDirectory(builder IndexBuilder, opts DirectoryOptions) *Directory {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 6 * time.Hour
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Directory{
		builder: builder,
		opts:    opts,
		log:     logger.With("directory"),
	}
}

// Current returns the installed index, or nil before the first good build
func (d *Directory) Current() *Index {
	return d.current.Load()
}

// Fresh reports whether an index exists and is within the staleness threshold
func (d *Directory) Fresh() bool {
	idx := d.current.Load()
	return idx != nil && idx.Age(d.opts.Now()) <= d.opts.StaleAfter
}

// Refresh rebuilds the index, joining any rebuild already in flight. The
// caller may give up via ctx without cancelling the shared rebuild. On
// failure the previous index, possibly nil, is returned with the error.
func (d *Directory) Refresh(ctx context.Context) (*Index, error) {
	if d.inBackoff() {
		return d.current.Load(), ErrRebuildBackoff
	}

	ch := d.group.DoChan(rebuildKey, func() (any, error) {
		return d.rebuild()
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return d.current.Load(), res.Err
		}
		return res.Val.(*Index), nil
	case <-ctx.Done():
		return d.current.Load(), ctx.Err()
	}
}

// RefreshAsync starts a rebuild in the background unless one is running
func (d *Directory) RefreshAsync() {
	if d.inBackoff() {
		return
	}
	d.group.DoChan(rebuildKey, func() (any, error) {
		return d.rebuild()
	})
}

func (d *Directory) rebuild() (*Index, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d.opts.BuildTimeout)
	defer cancel()

	idx, err := d.builder.Build(ctx)
	if err == nil && idx.Len() == 0 {
		err = ErrEmptyBuild
	}
	if err != nil {
		d.mu.Lock()
		d.lastFailure = d.opts.Now()
		d.mu.Unlock()
		metrics.IndexRebuildsTotal.WithLabelValues("failure").Inc()
		d.log.Warn("rebuild failed, keeping previous index",
			"error", err,
			"previous_stations", d.current.Load().Len(),
		)
		return nil, fmt.Errorf("rebuild directory: %w", err)
	}

	d.current.Store(idx)
	d.mu.Lock()
	d.lastFailure = time.Time{}
	d.mu.Unlock()
	metrics.IndexRebuildsTotal.WithLabelValues("success").Inc()
	metrics.IndexStations.Set(float64(idx.Len()))
	metrics.IndexBuiltAt.Set(float64(idx.BuiltAt.Unix()))
	d.log.Info("index installed", "stations", idx.Len())
	return idx, nil
}

func (d *Directory) inBackoff() bool {
	if d.opts.RebuildBackoff <= 0 {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.lastFailure.IsZero() && d.opts.Now().Sub(d.lastFailure) < d.opts.RebuildBackoff
}
