package snapshot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/metrics"
	"github.com/Never2333/tfl-status/internal/stations"
)

// retryAfterFailure spaces out reload attempts while the store is unreadable
const retryAfterFailure = time.Minute

// loaded is an immutable decoded snapshot
type loaded struct {
	doc      *Document
	stations []stations.Station
}

// Holder lazily loads the latest snapshot from a Store and keeps it in
// memory. Reload swaps in a new copy; a failed reload keeps the old one.
type Holder struct {
	store   Store
	catalog *stations.Catalog
	maxAge  time.Duration
	now     func() time.Time
	log     *slog.Logger
	current atomic.Pointer[loaded]

	mu       sync.Mutex
	failedAt time.Time
	lastErr  error
}

// NewHolder creates a holder. maxAge only affects logging and Info: a stale
// snapshot is still better than none.
func NewHolder(store Store, catalog *stations.Catalog, maxAge time.Duration) *Holder {
	return &Holder{
		store:   store,
		catalog: catalog,
		maxAge:  maxAge,
		now:     time.Now,
		log:     logger.With("snapshot"),
	}
}

// Stations returns the snapshot's stations, loading on first use
func (h *Holder) Stations(ctx context.Context) ([]stations.Station, error) {
	if l := h.current.Load(); l != nil {
		return l.stations, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if l := h.current.Load(); l != nil {
		return l.stations, nil
	}
	if !h.failedAt.IsZero() && h.now().Sub(h.failedAt) < retryAfterFailure {
		return nil, h.lastErr
	}
	if err := h.loadLocked(ctx); err != nil {
		return nil, err
	}
	return h.current.Load().stations, nil
}

// Reload re-reads the store, keeping the current copy on failure
func (h *Holder) Reload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loadLocked(ctx)
}

func (h *Holder) loadLocked(ctx context.Context) error {
	doc, err := h.store.Load(ctx)
	if err == nil && len(doc.Stations) == 0 {
		err = ErrEmpty
	}
	if err != nil {
		h.failedAt = h.now()
		h.lastErr = err
		if errors.Is(err, ErrNotFound) {
			h.log.Info("no offline snapshot available")
		} else {
			h.log.Warn("offline snapshot load failed", "error", err)
		}
		return err
	}

	l := &loaded{doc: doc, stations: doc.ToStations(h.catalog)}
	h.current.Store(l)
	h.failedAt = time.Time{}
	h.lastErr = nil
	metrics.SnapshotStations.Set(float64(len(l.stations)))

	if IsStale(doc, h.maxAge, h.now()) {
		h.log.Warn("offline snapshot is stale", "generated_at", doc.GeneratedAt, "stations", len(l.stations))
	} else {
		h.log.Info("offline snapshot loaded", "generated_at", doc.GeneratedAt, "stations", len(l.stations))
	}
	return nil
}

// Info describes the loaded snapshot
type Info struct {
	Loaded       bool      `json:"loaded"`
	GeneratedAt  time.Time `json:"generatedAt"`
	BuildID      string    `json:"buildId,omitempty"`
	StationCount int       `json:"stationCount"`
	Stale        bool      `json:"stale"`
}

// Info reports on the snapshot, loading it if needed
func (h *Holder) Info(ctx context.Context) Info {
	if _, err := h.Stations(ctx); err != nil {
		return Info{Stale: true}
	}
	l := h.current.Load()
	return Info{
		Loaded:       true,
		GeneratedAt:  l.doc.GeneratedAt,
		BuildID:      l.doc.BuildID,
		StationCount: len(l.stations),
		Stale:        IsStale(l.doc, h.maxAge, h.now()),
	}
}
