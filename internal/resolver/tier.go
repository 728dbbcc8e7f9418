// Package resolver answers station searches through an ordered chain of
// tiers: directory index, live upstream search, offline snapshot and the
// alias table. Search never fails; total failure yields an empty list.
package resolver

import (
	"context"
	"errors"
	"time"

	"github.com/Never2333/tfl-status/internal/stations"
)

// Query is a search as seen by a tier. Raw is the trimmed user text sent to
// upstream; Normalized is the cache key and ranking input.
type Query struct {
	Raw        string
	Normalized string
}

// ErrPartial accompanies a non-empty result that was cut short, usually by
// a timeout. The result is served but cached for Options.PartialCacheTTL.
var ErrPartial = errors.New("resolver: partial result")

// Tier is one resolution strategy. An error or an empty result advances
// the chain to the next tier, except a non-empty result with ErrPartial.
type Tier interface {
	Name() string
	Resolve(ctx context.Context, q Query) ([]stations.Station, error)
}

// Link places a tier in the chain. A non-empty result is cached for TTL;
// zero disables caching for that tier.
type Link struct {
	Tier Tier
	TTL  time.Duration
}
