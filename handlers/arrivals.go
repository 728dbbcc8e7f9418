package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Never2333/tfl-status/internal/logger"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/internal/tfl"
	"github.com/Never2333/tfl-status/models"
)

// ArrivalsClient is the upstream surface for the departures proxy
type ArrivalsClient interface {
	Arrivals(ctx context.Context, stopID string) ([]tfl.Arrival, error)
	LineStatus(ctx context.Context, lineIDs []string) ([]tfl.Line, error)
}

// ArrivalsHandler proxies predicted arrivals for a station, resolving a
// station name through the search resolver when no id is given
type ArrivalsHandler struct {
	client   ArrivalsClient
	searcher StationSearcher
	mode     string
	log      *slog.Logger
}

// NewArrivalsHandler creates a new handler
func NewArrivalsHandler(client ArrivalsClient, searcher StationSearcher, mode string) *ArrivalsHandler {
	return &ArrivalsHandler{client: client, searcher: searcher, mode: mode, log: logger.With("handlers")}
}

// ArrivalsResponse is the JSON response structure for GET /api/arrivals
type ArrivalsResponse struct {
	StationIDs []string            `json:"stationIds"`
	Arrivals   []models.Arrival    `json:"arrivals"`
	Statuses   []models.LineStatus `json:"statuses"`
	Count      int                 `json:"count"`
	PolledAt   time.Time           `json:"polledAt"`
}

// GetArrivals handles GET /api/arrivals?id=|name=
// Arrivals are filtered to the handler's mode and sorted soonest first;
// predictions without a time sort last.
func (h *ArrivalsHandler) GetArrivals(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if id == "" && name == "" {
		writeError(w, http.StatusBadRequest, "id or name parameter is required", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	targets := h.targets(ctx, id, name)
	if len(targets) == 0 {
		writeError(w, http.StatusNotFound, "No station matched", map[string]interface{}{"name": name})
		return
	}

	var (
		mu       sync.Mutex
		arrivals []tfl.Arrival
		failures int
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, tid := range targets {
		g.Go(func() error {
			list, err := h.client.Arrivals(gctx, tid)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				h.log.Warn("arrivals fetch failed", "stop", tid, "error", err)
				return nil
			}
			for _, a := range list {
				if strings.EqualFold(a.ModeName, h.mode) {
					arrivals = append(arrivals, a)
				}
			}
			return nil
		})
	}
	g.Wait()
	if failures == len(targets) {
		writeError(w, http.StatusBadGateway, "Failed to retrieve arrivals", map[string]interface{}{"stationIds": targets})
		return
	}

	sortArrivals(arrivals)

	resp := ArrivalsResponse{
		StationIDs: targets,
		Arrivals:   make([]models.Arrival, 0, len(arrivals)),
		Statuses:   []models.LineStatus{},
		PolledAt:   time.Now().UTC(),
	}
	var lineIDs []string
	seen := make(map[string]bool)
	for _, a := range arrivals {
		resp.Arrivals = append(resp.Arrivals, models.ArrivalFrom(a))
		if a.LineID != "" && !seen[a.LineID] {
			seen[a.LineID] = true
			lineIDs = append(lineIDs, a.LineID)
		}
	}
	resp.Count = len(resp.Arrivals)

	if len(lineIDs) > 0 {
		lines, err := h.client.LineStatus(ctx, lineIDs)
		if err != nil {
			h.log.Warn("line status fetch failed", "lines", lineIDs, "error", err)
		}
		for _, l := range lines {
			resp.Statuses = append(resp.Statuses, models.LineStatusFrom(l))
		}
	}

	writeJSON(w, http.StatusOK, "public, max-age=10, stale-while-revalidate=5", resp)
}

// targets picks the station ids to query. A station id is used as is; a
// name resolves to the best match plus any same-named stations (a split
// interchange); anything else is passed through for upstream to judge.
func (h *ArrivalsHandler) targets(ctx context.Context, id, name string) []string {
	if id != "" && stations.Classify(id, "") == stations.KindStation {
		return []string{id}
	}
	if name != "" {
		results := h.searcher.Search(ctx, name)
		if len(results) > 0 {
			best := results[0].DisplayName
			var ids []string
			for _, s := range results {
				if s.DisplayName == best {
					ids = append(ids, s.ID)
				}
			}
			return ids
		}
	}
	if id != "" {
		return []string{id}
	}
	return nil
}

func sortArrivals(arrivals []tfl.Arrival) {
	sort.SliceStable(arrivals, func(i, j int) bool {
		a, b := arrivals[i].TimeToStation, arrivals[j].TimeToStation
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
