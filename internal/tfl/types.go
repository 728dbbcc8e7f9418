package tfl

import "time"

// StopPoint is the TfL StopPoint shape as returned by detail, bulk and
// per-line listings. Only the fields the directory uses are decoded.
type StopPoint struct {
	ID             string          `json:"id"`
	NaptanID       string          `json:"naptanId"`
	CommonName     string          `json:"commonName"`
	Name           string          `json:"name"`
	StopType       string          `json:"stopType"`
	ICSCode        string          `json:"icsCode"`
	HubNaptanCode  string          `json:"hubNaptanCode"`
	ParentID       string          `json:"parentId"`
	Modes          []string        `json:"modes"`
	Children       []StopPoint     `json:"children"`
	LineModeGroups []LineModeGroup `json:"lineModeGroups"`
	Lines          []Identifier    `json:"lines"`
}

// DisplayName prefers commonName and falls back to name
func (s StopPoint) DisplayName() string {
	if s.CommonName != "" {
		return s.CommonName
	}
	return s.Name
}

// LineModeGroup lists line identifiers for a single transport mode
type LineModeGroup struct {
	ModeName       string   `json:"modeName"`
	LineIdentifier []string `json:"lineIdentifier"`
}

// Identifier is TfL's generic {id, name} reference. ModeName is only
// present when the reference came from a Line endpoint.
type Identifier struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	URI      string `json:"uri,omitempty"`
	Type     string `json:"type,omitempty"`
	ModeName string `json:"modeName,omitempty"`
}

// SearchResponse is returned by /StopPoint/Search/{query}
type SearchResponse struct {
	Query   string        `json:"query"`
	Total   int           `json:"total"`
	Matches []SearchMatch `json:"matches"`
}

// SearchMatch is one candidate from TfL's own fuzzy search
type SearchMatch struct {
	ID              string       `json:"id"`
	ICSID           string       `json:"icsId"`
	Name            string       `json:"name"`
	TopMostParentID string       `json:"topMostParentId"`
	Modes           []string     `json:"modes"`
	Lines           []Identifier `json:"lines"`
}

// Line is a service line with optional status information
type Line struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ModeName     string       `json:"modeName"`
	LineStatuses []LineStatus `json:"lineStatuses"`
}

// LineStatus is one status entry for a line
type LineStatus struct {
	StatusSeverity            int    `json:"statusSeverity"`
	StatusSeverityDescription string `json:"statusSeverityDescription"`
	Reason                    string `json:"reason,omitempty"`
}

// Arrival is a single predicted arrival at a stop
type Arrival struct {
	ID              string    `json:"id"`
	VehicleID       string    `json:"vehicleId"`
	NaptanID        string    `json:"naptanId"`
	StationName     string    `json:"stationName"`
	LineID          string    `json:"lineId"`
	LineName        string    `json:"lineName"`
	PlatformName    string    `json:"platformName"`
	Direction       string    `json:"direction"`
	DestinationName string    `json:"destinationName"`
	Towards         string    `json:"towards"`
	CurrentLocation string    `json:"currentLocation"`
	TimeToStation   *int      `json:"timeToStation"`
	ExpectedArrival time.Time `json:"expectedArrival"`
	ModeName        string    `json:"modeName"`
}
