package stations

import (
	"context"
	"errors"
	"sync"

	"github.com/Never2333/tfl-status/internal/tfl"
)

var errUpstreamDown = errors.New("upstream down")

// fakeTfL is an in-memory directory client with call accounting
type fakeTfL struct {
	mu        sync.Mutex
	nodes     map[string]tfl.StopPoint
	byMode    []tfl.StopPoint
	lines     []tfl.Line
	lineStops map[string][]tfl.StopPoint

	failNodes bool
	failMode  bool
	failLines bool
	failStops map[string]bool
	modeBlock chan struct{}

	calls map[string]int
}

func newFakeTfL() *fakeTfL {
	return &fakeTfL{
		nodes:     make(map[string]tfl.StopPoint),
		lineStops: make(map[string][]tfl.StopPoint),
		failStops: make(map[string]bool),
		calls:     make(map[string]int),
	}
}

func (f *fakeTfL) add(sps ...tfl.StopPoint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sp := range sps {
		f.nodes[sp.ID] = sp
	}
}

func (f *fakeTfL) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeTfL) record(name string) {
	f.mu.Lock()
	f.calls[name]++
	f.mu.Unlock()
}

func (f *fakeTfL) StopPoint(ctx context.Context, id string) (*tfl.StopPoint, error) {
	f.record("stoppoint")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNodes {
		return nil, errUpstreamDown
	}
	sp, ok := f.nodes[id]
	if !ok {
		return nil, &tfl.HTTPError{Endpoint: "stoppoint", StatusCode: 404}
	}
	return &sp, nil
}

func (f *fakeTfL) StopPointsByMode(ctx context.Context, mode string) ([]tfl.StopPoint, error) {
	f.record("stoppoint_mode")
	if f.modeBlock != nil {
		select {
		case <-f.modeBlock:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failMode {
		return nil, errUpstreamDown
	}
	return f.byMode, nil
}

func (f *fakeTfL) LinesByMode(ctx context.Context, mode string) ([]tfl.Line, error) {
	f.record("line_mode")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLines {
		return nil, errUpstreamDown
	}
	return f.lines, nil
}

func (f *fakeTfL) LineStopPoints(ctx context.Context, lineID string) ([]tfl.StopPoint, error) {
	f.record("line_stoppoints")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStops[lineID] || f.failStops["*"] {
		return nil, errUpstreamDown
	}
	return f.lineStops[lineID], nil
}

func (f *fakeTfL) setFailAll(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNodes = fail
	f.failMode = fail
	f.failLines = fail
	if fail {
		f.failStops["*"] = true
	} else {
		delete(f.failStops, "*")
	}
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

func platform(id, parentID string) tfl.StopPoint {
	return tfl.StopPoint{ID: id, CommonName: "Platform", StopType: "NaptanMetroPlatform", ParentID: parentID, Modes: []string{"tube"}}
}

func hub(id, name string, children ...tfl.StopPoint) tfl.StopPoint {
	return tfl.StopPoint{ID: id, CommonName: name, StopType: "TransportInterchange", Children: children}
}
