package models

import "github.com/Never2333/tfl-status/internal/stations"

// Line is a line serving a station
type Line struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// Station is the public shape of a resolved tube station
type Station struct {
	ID          string `json:"id"`          // "940GZZLUWLO" format, always station granularity
	DisplayName string `json:"displayName"` // cleaned, e.g. "Waterloo"
	Lines       []Line `json:"lines"`
}

// StationFrom converts a directory station
func StationFrom(s stations.Station) Station {
	return Station{ID: s.ID, DisplayName: s.DisplayName, Lines: LinesFrom(s.Lines)}
}

// StationsFrom converts a result list, never returning nil
func StationsFrom(list []stations.Station) []Station {
	out := make([]Station, 0, len(list))
	for _, s := range list {
		out = append(out, StationFrom(s))
	}
	return out
}

// LinesFrom converts directory lines, never returning nil
func LinesFrom(lines []stations.Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, Line{ID: l.ID, DisplayName: l.DisplayName})
	}
	return out
}
