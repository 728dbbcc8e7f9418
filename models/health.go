package models

import "time"

// Health statuses
const (
	StatusOK          = "ok"
	StatusDegraded    = "degraded"    // searches served by live or offline tiers
	StatusUnavailable = "unavailable" // no index and no snapshot
)

// IndexHealth describes the directory index
type IndexHealth struct {
	Stations int        `json:"stations"`
	BuiltAt  *time.Time `json:"builtAt"`
	Fresh    bool       `json:"fresh"`
}

// SnapshotHealth describes the offline snapshot
type SnapshotHealth struct {
	Loaded      bool       `json:"loaded"`
	GeneratedAt *time.Time `json:"generatedAt"`
	BuildID     string     `json:"buildId,omitempty"`
	Stations    int        `json:"stationCount"`
	Stale       bool       `json:"stale"`
}

// Health is the JSON body of GET /health
type Health struct {
	Status    string         `json:"status"`
	Index     IndexHealth    `json:"index"`
	Snapshot  SnapshotHealth `json:"snapshot"`
	Timestamp time.Time      `json:"timestamp"`
}
