// Package snapshot defines the offline station snapshot: a build-time copy
// of the directory index used when live resolution fails.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Never2333/tfl-status/internal/stations"
)

var (
	// ErrNotFound means no snapshot has been written yet
	ErrNotFound = errors.New("snapshot: not found")
	// ErrEmpty guards against replacing a snapshot with an empty one
	ErrEmpty = errors.New("snapshot: refusing to save an empty snapshot")
	// ErrMalformed means the stored document could not be decoded
	ErrMalformed = errors.New("snapshot: malformed document")
)

// Document is the persisted snapshot layout. Lines are raw line ids; display
// names are resolved through the live catalog when the snapshot is read.
type Document struct {
	GeneratedAt time.Time `json:"generatedAt"`
	BuildID     string    `json:"buildId,omitempty"`
	Stations    []Entry   `json:"stations"`
}

// Entry is one station in a snapshot
type Entry struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Lines []string `json:"lines"`
}

// FromIndex materializes an index into a snapshot document sorted by name
func FromIndex(idx *stations.Index, buildID string) *Document {
	list := idx.Stations()
	entries := make([]Entry, 0, len(list))
	for _, s := range list {
		entries = append(entries, Entry{ID: s.ID, Name: s.DisplayName, Lines: s.LineIDs()})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return &Document{
		GeneratedAt: idx.BuiltAt.UTC(),
		BuildID:     buildID,
		Stations:    entries,
	}
}

// ToStations converts entries into Station values using catalog for line
// names. Entries outside the station namespace are skipped.
func (d *Document) ToStations(catalog *stations.Catalog) []stations.Station {
	if d == nil {
		return nil
	}
	out := make([]stations.Station, 0, len(d.Stations))
	seen := make(map[string]bool, len(d.Stations))
	for _, e := range d.Stations {
		if stations.Classify(e.ID, "") != stations.KindStation || seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		lines := make([]stations.Line, 0, len(e.Lines))
		for _, id := range e.Lines {
			lines = append(lines, catalog.Line(id))
		}
		out = append(out, stations.NewStation(e.ID, e.Name, lines))
	}
	return out
}

// Age returns how old the snapshot is
func (d *Document) Age(now time.Time) time.Duration {
	return now.Sub(d.GeneratedAt)
}

// IsStale reports whether doc is missing, undated, or older than maxAge
func IsStale(doc *Document, maxAge time.Duration, now time.Time) bool {
	if doc == nil || doc.GeneratedAt.IsZero() {
		return true
	}
	return doc.Age(now) > maxAge
}

// Decode parses a snapshot. Legacy snapshots that are a bare station array
// decode with a zero GeneratedAt.
func Decode(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	if trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return &Document{Stations: entries}, nil
	}
	var doc Document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &doc, nil
}

// Encode renders a snapshot as indented JSON
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return append(data, '\n'), nil
}
