package resolver

import (
	"context"
	"fmt"

	"github.com/Never2333/tfl-status/internal/stations"
)

// DirectorySource is the directory index as the index tier needs it
type DirectorySource interface {
	Current() *stations.Index
	Fresh() bool
	Refresh(ctx context.Context) (*stations.Index, error)
	RefreshAsync()
}

// IndexTier ranks against the prebuilt directory index. Stale results are
// served on purpose: a stale index answers while a background rebuild runs
// and only an empty one is rebuilt before answering.
type IndexTier struct {
	dir   DirectorySource
	limit int
}

// NewIndexTier creates the index tier
func NewIndexTier(dir DirectorySource, limit int) *IndexTier {
	return &IndexTier{dir: dir, limit: limit}
}

func (t *IndexTier) Name() string { return "index" }

func (t *IndexTier) Resolve(ctx context.Context, q Query) ([]stations.Station, error) {
	idx := t.dir.Current()
	if idx.Len() == 0 {
		var err error
		idx, err = t.dir.Refresh(ctx)
		if err != nil && idx.Len() == 0 {
			return nil, fmt.Errorf("index unavailable: %w", err)
		}
	} else if !t.dir.Fresh() {
		t.dir.RefreshAsync()
	}
	return idx.Search(q.Normalized, t.limit), nil
}
