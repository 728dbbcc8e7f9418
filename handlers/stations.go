package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/bluele/gcache"
	"github.com/go-chi/chi/v5"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/internal/tfl"
	"github.com/Never2333/tfl-status/models"
)

// linesCacheTTL matches how rarely a station's lines change in practice
const linesCacheTTL = time.Minute

// StationLinesHandler reports the lines serving a stop. Platform ids
// resolve to their parent station; hubs to the union of their stations.
type StationLinesHandler struct {
	client  stations.NodeFetcher
	catalog *stations.Catalog
	hier    *stations.HierarchyResolver
	cache   gcache.Cache
	log     *slog.Logger
}

// NewStationLinesHandler creates a new handler
func NewStationLinesHandler(client stations.NodeFetcher, catalog *stations.Catalog, maxDepth int) *StationLinesHandler {
	return &StationLinesHandler{
		client:  client,
		catalog: catalog,
		hier:    stations.NewHierarchyResolver(client, catalog.Mode(), maxDepth),
		cache:   gcache.New(512).LRU().Expiration(linesCacheTTL).Build(),
		log:     logger.With("handlers"),
	}
}

// StationLinesResponse is the JSON response structure for GET /api/stations/{id}/lines
type StationLinesResponse struct {
	ID         string        `json:"id"`
	StationIDs []string      `json:"stationIds"`
	Lines      []models.Line `json:"lines"`
}

// GetLines handles GET /api/stations/{id}/lines
func (h *StationLinesHandler) GetLines(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id parameter is required", nil)
		return
	}

	if v, err := h.cache.Get(id); err == nil {
		writeJSON(w, http.StatusOK, "public, max-age=60", v)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sp, err := h.client.StopPoint(ctx, id)
	if err != nil {
		if tfl.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Stop not found", map[string]interface{}{"id": id})
			return
		}
		h.log.Warn("stop lookup failed", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "Failed to retrieve stop", map[string]interface{}{"internal": err.Error()})
		return
	}

	nodes := h.hier.ResolveNode(ctx, stations.NodeFromStopPoint(*sp))
	resp := StationLinesResponse{ID: id, StationIDs: make([]string, 0, len(nodes))}
	var lines []stations.Line
	for _, n := range nodes {
		resp.StationIDs = append(resp.StationIDs, n.ID)
		lines = append(lines, stations.DeriveLines(n, h.catalog)...)
	}
	// NewStation dedupes and orders the union
	resp.Lines = models.LinesFrom(stations.NewStation(id, "", lines).Lines)

	if len(nodes) > 0 {
		h.cache.Set(id, resp)
	}
	writeJSON(w, http.StatusOK, "public, max-age=60", resp)
}
