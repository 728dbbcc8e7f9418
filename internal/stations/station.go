package stations

import "sort"

// Line is a service line calling at a station
type Line struct {
	ID          string
	DisplayName string
}

// Station is a canonical, station-granularity directory entry. Values are
// immutable once constructed: Lines is a private copy sorted by id.
type Station struct {
	ID             string
	DisplayName    string
	NormalizedName string
	Lines          []Line
}

// NewStation builds a Station from a display name and lines. The name is
// cleaned of generic suffixes; lines are deduplicated by id.
func NewStation(id, name string, lines []Line) Station {
	display := CleanDisplayName(name)
	return Station{
		ID:             id,
		DisplayName:    display,
		NormalizedName: Normalize(display),
		Lines:          uniqueLines(lines),
	}
}

// LineIDs returns the ids of the station's lines
func (s Station) LineIDs() []string {
	ids := make([]string, len(s.Lines))
	for i, l := range s.Lines {
		ids[i] = l.ID
	}
	return ids
}

// HasLine reports whether the station is served by lineID
func (s Station) HasLine(lineID string) bool {
	for _, l := range s.Lines {
		if l.ID == lineID {
			return true
		}
	}
	return false
}

// mergeLines returns a station with the union of both line sets
func (s Station) mergeLines(other []Line) Station {
	all := make([]Line, 0, len(s.Lines)+len(other))
	all = append(all, s.Lines...)
	all = append(all, other...)
	return Station{
		ID:             s.ID,
		DisplayName:    s.DisplayName,
		NormalizedName: s.NormalizedName,
		Lines:          uniqueLines(all),
	}
}

func uniqueLines(lines []Line) []Line {
	seen := make(map[string]bool, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if l.ID == "" || seen[l.ID] {
			continue
		}
		seen[l.ID] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
