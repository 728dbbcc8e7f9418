package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Never2333/tfl-status/internal/snapshot"
	"github.com/Never2333/tfl-status/internal/stations"
	"github.com/Never2333/tfl-status/internal/tfl"
)

var errOutage = errors.New("upstream outage")

// fakeUpstream serves search and node lookups from memory
type fakeUpstream struct {
	mu      sync.Mutex
	matches map[string][]tfl.SearchMatch
	nodes   map[string]tfl.StopPoint
	slow    map[string]time.Duration // node lookups that stall; set before use
	fail    bool
	calls   int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		matches: make(map[string][]tfl.SearchMatch),
		nodes:   make(map[string]tfl.StopPoint),
	}
}

func (f *fakeUpstream) add(sps ...tfl.StopPoint) {
	for _, sp := range sps {
		f.nodes[sp.ID] = sp
	}
}

func (f *fakeUpstream) Search(ctx context.Context, query, mode string) ([]tfl.SearchMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errOutage
	}
	return f.matches[strings.ToLower(query)], nil
}

func (f *fakeUpstream) StopPoint(ctx context.Context, id string) (*tfl.StopPoint, error) {
	if d, ok := f.slow[id]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return nil, errOutage
	}
	sp, ok := f.nodes[id]
	if !ok {
		return nil, &tfl.HTTPError{Endpoint: "stoppoint", StatusCode: 404}
	}
	return &sp, nil
}

func (f *fakeUpstream) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stubDirectory is a DirectorySource with scripted behaviour
type stubDirectory struct {
	mu         sync.Mutex
	idx        *stations.Index
	fresh      bool
	rebuilt    *stations.Index
	refreshErr error
	refreshes  int
	asyncs     int
}

func (d *stubDirectory) Current() *stations.Index {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idx
}

func (d *stubDirectory) Fresh() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idx != nil && d.fresh
}

func (d *stubDirectory) Refresh(ctx context.Context) (*stations.Index, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshes++
	if d.refreshErr != nil {
		return d.idx, d.refreshErr
	}
	d.idx, d.fresh = d.rebuilt, true
	return d.idx, nil
}

func (d *stubDirectory) RefreshAsync() {
	d.mu.Lock()
	d.asyncs++
	d.mu.Unlock()
}

// stubTier returns a fixed result and counts calls
type stubTier struct {
	name   string
	result []stations.Station
	err    error
	hook   func()
	mu     sync.Mutex
	calls  int
}

func (t *stubTier) Name() string { return t.name }

func (t *stubTier) Resolve(ctx context.Context, q Query) ([]stations.Station, error) {
	t.mu.Lock()
	t.calls++
	t.mu.Unlock()
	if t.hook != nil {
		t.hook()
	}
	return t.result, t.err
}

func (t *stubTier) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// memStore is an in-memory snapshot.Store
type memStore struct {
	doc *snapshot.Document
	err error
}

func (m *memStore) Load(ctx context.Context) (*snapshot.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.doc == nil {
		return nil, snapshot.ErrNotFound
	}
	return m.doc, nil
}

func (m *memStore) Save(ctx context.Context, doc *snapshot.Document) error {
	m.doc = doc
	return nil
}

func tubeStation(id, name string, lines ...string) tfl.StopPoint {
	return tfl.StopPoint{
		ID:             id,
		CommonName:     name,
		StopType:       "NaptanMetroStation",
		Modes:          []string{"tube"},
		LineModeGroups: []tfl.LineModeGroup{{ModeName: "tube", LineIdentifier: lines}},
	}
}

func hub(id, name string, children ...tfl.StopPoint) tfl.StopPoint {
	return tfl.StopPoint{ID: id, CommonName: name, StopType: "TransportInterchange", Children: children}
}

var waterlooLines = []string{"bakerloo", "jubilee", "northern", "waterloo-city"}

func station(id, name string, lineIDs ...string) stations.Station {
	catalog := stations.TubeCatalog()
	lines := make([]stations.Line, len(lineIDs))
	for i, l := range lineIDs {
		lines[i] = catalog.Line(l)
	}
	return stations.NewStation(id, name, lines)
}
