package resolver

import (
	"context"
	"fmt"

	"github.com/Never2333/tfl-status/internal/stations"
)

// SnapshotSource yields the offline snapshot's stations
type SnapshotSource interface {
	Stations(ctx context.Context) ([]stations.Station, error)
}

// SnapshotTier ranks against the last materialized offline snapshot
type SnapshotTier struct {
	src   SnapshotSource
	limit int
}

// NewSnapshotTier creates the snapshot tier
func NewSnapshotTier(src SnapshotSource, limit int) *SnapshotTier {
	return &SnapshotTier{src: src, limit: limit}
}

func (t *SnapshotTier) Name() string { return "snapshot" }

func (t *SnapshotTier) Resolve(ctx context.Context, q Query) ([]stations.Station, error) {
	list, err := t.src.Stations(ctx)
	if err != nil {
		return nil, fmt.Errorf("offline snapshot: %w", err)
	}
	return stations.Rank(q.Normalized, list, t.limit), nil
}
