package stations

import (
	"sort"
	"time"
)

// Index is an immutable snapshot of the station directory. A rebuild
// produces a new Index; existing values are never modified.
type Index struct {
	byID    map[string]Station
	sorted  []Station
	BuiltAt time.Time
}

// NewIndex builds an index, merging duplicate ids by line union
func NewIndex(list []Station, builtAt time.Time) *Index {
	byID := make(map[string]Station, len(list))
	for _, s := range list {
		if s.ID == "" {
			continue
		}
		if prev, ok := byID[s.ID]; ok {
			byID[s.ID] = prev.mergeLines(s.Lines)
			continue
		}
		byID[s.ID] = s
	}

	sorted := make([]Station, 0, len(byID))
	for _, s := range byID {
		sorted = append(sorted, s)
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].DisplayName != sorted[j].DisplayName {
			return sorted[i].DisplayName < sorted[j].DisplayName
		}
		return sorted[i].ID < sorted[j].ID
	})

	return &Index{byID: byID, sorted: sorted, BuiltAt: builtAt}
}

// Len returns the number of stations
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.sorted)
}

// Get looks a station up by id
func (i *Index) Get(id string) (Station, bool) {
	if i == nil {
		return Station{}, false
	}
	s, ok := i.byID[id]
	return s, ok
}

// Stations returns all stations ordered by display name
func (i *Index) Stations() []Station {
	if i == nil {
		return nil
	}
	out := make([]Station, len(i.sorted))
	copy(out, i.sorted)
	return out
}

// Search ranks the index against a query
func (i *Index) Search(query string, limit int) []Station {
	if i == nil {
		return nil
	}
	return Rank(query, i.sorted, limit)
}

// Age is the time elapsed since the index was built
func (i *Index) Age(now time.Time) time.Duration {
	return now.Sub(i.BuiltAt)
}
