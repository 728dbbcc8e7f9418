package handlers

import (
	"context"
	"net/http"

	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/models"
)

// StationSearcher resolves free text to stations. It never fails.
type StationSearcher interface {
	Search(ctx context.Context, raw string) []stations.Station
}

// QuickPicker lists well-known stations offered before the user types
type QuickPicker interface {
	Stations() []stations.Station
}

// SearchHandler handles station search requests
type SearchHandler struct {
	searcher StationSearcher
	picks    QuickPicker
}

// NewSearchHandler creates a new handler. picks may be nil.
func NewSearchHandler(searcher StationSearcher, picks QuickPicker) *SearchHandler {
	return &SearchHandler{searcher: searcher, picks: picks}
}

// SearchResponse is the JSON response structure for GET /api/search
type SearchResponse struct {
	Query    string           `json:"query"`
	Stations []models.Station `json:"stations"`
	Count    int              `json:"count"`
}

// Search handles GET /api/search?q=
// An unresolvable query is a 200 with an empty list, not an error.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if !values.Has("q") {
		writeError(w, http.StatusBadRequest, "q parameter is required", nil)
		return
	}
	q := values.Get("q")

	list := models.StationsFrom(h.searcher.Search(r.Context(), q))
	writeJSON(w, http.StatusOK, "public, max-age=30, stale-while-revalidate=30", SearchResponse{
		Query:    q,
		Stations: list,
		Count:    len(list),
	})
}

// QuickPicks handles GET /api/stations/quick
func (h *SearchHandler) QuickPicks(w http.ResponseWriter, r *http.Request) {
	var list []models.Station
	if h.picks != nil {
		list = models.StationsFrom(h.picks.Stations())
	} else {
		list = []models.Station{}
	}
	writeJSON(w, http.StatusOK, "public, max-age=3600", SearchResponse{Stations: list, Count: len(list)})
}
