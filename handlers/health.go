package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Never2333/tfl-status/internal/snapshot"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/models"
)

// IndexStatus exposes the directory index state
type IndexStatus interface {
	Current() *stations.Index
	Fresh() bool
}

// SnapshotInfoer describes the offline snapshot
type SnapshotInfoer interface {
	Info(ctx context.Context) snapshot.Info
}

// HealthHandler handles health and offline metadata requests
type HealthHandler struct {
	index IndexStatus
	snap  SnapshotInfoer
}

// NewHealthHandler creates a new handler
func NewHealthHandler(index IndexStatus, snap SnapshotInfoer) *HealthHandler {
	return &HealthHandler{index: index, snap: snap}
}

// OfflineMetaResponse is the JSON response structure for GET /api/offline-meta
type OfflineMetaResponse struct {
	GeneratedAt  *time.Time `json:"generatedAt"`
	BuildID      string     `json:"buildId,omitempty"`
	StationCount int        `json:"stationCount"`
	Stale        bool       `json:"stale"`
}

// OfflineMeta handles GET /api/offline-meta
// A missing snapshot is reported as a null timestamp with zero stations.
func (h *HealthHandler) OfflineMeta(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	info := h.snap.Info(ctx)
	writeJSON(w, http.StatusOK, "no-cache", OfflineMetaResponse{
		GeneratedAt:  timePtr(info.GeneratedAt),
		BuildID:      info.BuildID,
		StationCount: info.StationCount,
		Stale:        info.Stale,
	})
}

// Health handles GET /health
// 503 only when neither the index nor the snapshot can answer searches.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := models.Health{Timestamp: time.Now().UTC()}
	if idx := h.index.Current(); idx != nil {
		resp.Index = models.IndexHealth{
			Stations: idx.Len(),
			BuiltAt:  timePtr(idx.BuiltAt),
			Fresh:    h.index.Fresh(),
		}
	}
	info := h.snap.Info(ctx)
	resp.Snapshot = models.SnapshotHealth{
		Loaded:      info.Loaded,
		GeneratedAt: timePtr(info.GeneratedAt),
		BuildID:     info.BuildID,
		Stations:    info.StationCount,
		Stale:       info.Stale,
	}

	status := http.StatusOK
	switch {
	case resp.Index.Fresh:
		resp.Status = models.StatusOK
	case resp.Index.Stations > 0 || info.Loaded:
		resp.Status = models.StatusDegraded
	default:
		resp.Status = models.StatusUnavailable
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, "no-store", resp)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}
