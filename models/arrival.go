package models

import (
	"time"

	"github.com/Never2333/tfl-status/internal/tfl"
)

// Arrival is one predicted train at a station
type Arrival struct {
	ID              string    `json:"id"`
	StationID       string    `json:"stationId"`
	StationName     string    `json:"stationName"`
	LineID          string    `json:"lineId"`
	LineName        string    `json:"lineName"`
	PlatformName    string    `json:"platformName"`
	Direction       string    `json:"direction,omitempty"`
	DestinationName string    `json:"destinationName"`
	Towards         string    `json:"towards,omitempty"`
	CurrentLocation string    `json:"currentLocation,omitempty"`
	TimeToStation   *int      `json:"timeToStation"` // seconds; null when upstream omits it
	ExpectedArrival time.Time `json:"expectedArrival"`
}

// ArrivalFrom converts an upstream prediction
func ArrivalFrom(a tfl.Arrival) Arrival {
	return Arrival{
		ID:              a.ID,
		StationID:       a.NaptanID,
		StationName:     a.StationName,
		LineID:          a.LineID,
		LineName:        a.LineName,
		PlatformName:    a.PlatformName,
		Direction:       a.Direction,
		DestinationName: a.DestinationName,
		Towards:         a.Towards,
		CurrentLocation: a.CurrentLocation,
		TimeToStation:   a.TimeToStation,
		ExpectedArrival: a.ExpectedArrival,
	}
}

// LineStatus is the headline status of a line
type LineStatus struct {
	ID                        string `json:"id"`
	Name                      string `json:"name"`
	StatusSeverityDescription string `json:"statusSeverityDescription"`
	Reason                    string `json:"reason,omitempty"`
}

// LineStatusFrom takes the first status entry of an upstream line
func LineStatusFrom(l tfl.Line) LineStatus {
	s := LineStatus{ID: l.ID, Name: l.Name}
	if len(l.LineStatuses) > 0 {
		s.StatusSeverityDescription = l.LineStatuses[0].StatusSeverityDescription
		s.Reason = l.LineStatuses[0].Reason
	}
	return s
}
