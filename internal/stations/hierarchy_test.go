package stations

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/Never2333/tfl-status/internal/tfl"
)

func resolvedIDs(nodes []Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	sort.Strings(ids)
	return ids
}

func TestResolve_StationPassesThrough(t *testing.T) {
	f := newFakeTfL()
	f.add(tubeStation("940GZZLUWLO", "Waterloo Underground Station", "bakerloo"))
	h := NewHierarchyResolver(f, "tube", 3)

	got := resolvedIDs(h.Resolve(context.Background(), "940GZZLUWLO"))
	if fmt.Sprint(got) != "[940GZZLUWLO]" {
		t.Errorf("Resolve() = %v, expected [940GZZLUWLO]", got)
	}
	if f.count("stoppoint") != 1 {
		t.Errorf("stoppoint calls = %d, expected 1", f.count("stoppoint"))
	}
}

func TestResolve_PlatformMapsToParent(t *testing.T) {
	f := newFakeTfL()
	f.add(
		platform("9400ZZLUOXC1", "940GZZLUOXC"),
		tubeStation("940GZZLUOXC", "Oxford Circus Underground Station", "central", "victoria", "bakerloo"),
	)
	h := NewHierarchyResolver(f, "tube", 3)

	got := resolvedIDs(h.Resolve(context.Background(), "9400ZZLUOXC1"))
	if fmt.Sprint(got) != "[940GZZLUOXC]" {
		t.Errorf("Resolve() = %v, expected [940GZZLUOXC]", got)
	}
}

func TestResolve_PlatformWithHubParent(t *testing.T) {
	f := newFakeTfL()
	f.add(
		platform("9400ZZLUBNK1", "HUBBAN"),
		hub("HUBBAN", "Bank",
			tubeStation("940GZZLUBNK", "Bank Underground Station", "central"),
			tubeStation("940GZZLUMMT", "Monument Underground Station", "district"),
		),
	)
	h := NewHierarchyResolver(f, "tube", 3)

	got := resolvedIDs(h.Resolve(context.Background(), "9400ZZLUBNK1"))
	if fmt.Sprint(got) != "[940GZZLUBNK 940GZZLUMMT]" {
		t.Errorf("Resolve() = %v, expected both hub stations", got)
	}
}

func TestResolve_HubWithStationChildren_IgnoresOtherModes(t *testing.T) {
	f := newFakeTfL()
	rail := tfl.StopPoint{ID: "910GWATRLMN", StopType: "NaptanRailStation", Modes: []string{"national-rail"}}
	dlr := tfl.StopPoint{ID: "940GZZDLBNK", StopType: "NaptanMetroStation", Modes: []string{"dlr"}}
	f.add(hub("HUBWAT", "Waterloo", rail, dlr, tubeStation("940GZZLUWLO", "Waterloo Underground Station", "jubilee")))
	h := NewHierarchyResolver(f, "tube", 3)

	got := resolvedIDs(h.Resolve(context.Background(), "HUBWAT"))
	if fmt.Sprint(got) != "[940GZZLUWLO]" {
		t.Errorf("Resolve() = %v, expected [940GZZLUWLO]", got)
	}
}

func TestResolve_HubWithOnlyPlatformChildren(t *testing.T) {
	f := newFakeTfL()
	f.add(
		hub("HUBPAD", "Paddington",
			platform("9400ZZLUPAC1", "940GZZLUPAC"),
			platform("9400ZZLUPAC2", "940GZZLUPAC"),
			tfl.StopPoint{ID: "9400ZZLUPAH1", StopType: "NaptanMetroPlatform"},
		),
		tubeStation("940GZZLUPAC", "Paddington Underground Station", "bakerloo", "circle", "district"),
		platform("9400ZZLUPAH1", "940GZZLUPAH"),
		tubeStation("940GZZLUPAH", "Paddington (H&C Line)-Underground", "hammersmith-city"),
	)
	h := NewHierarchyResolver(f, "tube", 3)

	got := resolvedIDs(h.Resolve(context.Background(), "HUBPAD"))
	if fmt.Sprint(got) != "[940GZZLUPAC 940GZZLUPAH]" {
		t.Errorf("Resolve() = %v, expected both Paddington stations once each", got)
	}
}

func TestResolve_SplitInterchange(t *testing.T) {
	f := newFakeTfL()
	f.add(hub("HUBHAM", "Hammersmith",
		tubeStation("940GZZLUHSD", "Hammersmith Underground Station", "district", "piccadilly"),
		tubeStation("940GZZLUHSC", "Hammersmith Underground Station", "circle", "hammersmith-city"),
	))
	h := NewHierarchyResolver(f, "tube", 3)
	catalog := TubeCatalog()

	nodes := h.Resolve(context.Background(), "HUBHAM")
	if len(nodes) != 2 {
		t.Fatalf("Resolve() returned %d nodes, expected 2", len(nodes))
	}
	a := NewStation(nodes[0].ID, nodes[0].Name, DeriveLines(nodes[0], catalog))
	b := NewStation(nodes[1].ID, nodes[1].Name, DeriveLines(nodes[1], catalog))
	if a.ID == b.ID {
		t.Errorf("split interchange produced duplicate ids %q", a.ID)
	}
	if a.DisplayName != "Hammersmith" || b.DisplayName != "Hammersmith" {
		t.Errorf("names = %q, %q, expected both %q", a.DisplayName, b.DisplayName, "Hammersmith")
	}
	if a.HasLine("circle") == b.HasLine("circle") {
		t.Error("exactly one of the split stations should serve the circle line")
	}
}

func TestResolve_CycleTerminates(t *testing.T) {
	f := newFakeTfL()
	// Two hubs whose platforms point at each other, never reaching a station
	f.add(
		hub("HUBA", "A", platform("9400A1", "HUBB")),
		hub("HUBB", "B", platform("9400B1", "HUBA")),
	)
	h := NewHierarchyResolver(f, "tube", 3)

	got := h.Resolve(context.Background(), "HUBA")
	if len(got) != 0 {
		t.Errorf("Resolve() = %v, expected empty result for a station-less cycle", resolvedIDs(got))
	}
}

func TestResolve_FetchFailureContributesNothing(t *testing.T) {
	f := newFakeTfL()
	f.failNodes = true
	h := NewHierarchyResolver(f, "tube", 3)

	if got := h.Resolve(context.Background(), "HUBWAT"); len(got) != 0 {
		t.Errorf("Resolve() = %v, expected empty on upstream failure", resolvedIDs(got))
	}
}

func TestResolve_CancelledContext(t *testing.T) {
	f := newFakeTfL()
	f.add(tubeStation("940GZZLUWLO", "Waterloo", "jubilee"))
	h := NewHierarchyResolver(f, "tube", 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if got := h.Resolve(ctx, "940GZZLUWLO"); len(got) != 0 {
		t.Errorf("Resolve() = %v, expected nothing after cancellation", resolvedIDs(got))
	}
	if f.count("stoppoint") != 0 {
		t.Errorf("stoppoint calls = %d, expected none", f.count("stoppoint"))
	}
}

// randomHierarchy builds a graph of hubs, platforms and stations with
// arbitrary (often cyclic) parent links.
func randomHierarchy(r *rand.Rand, f *fakeTfL, size int) []string {
	ids := make([]string, 0, size)
	kinds := make([]int, size)
	for i := 0; i < size; i++ {
		kinds[i] = r.Intn(4)
		switch kinds[i] {
		case 0:
			ids = append(ids, fmt.Sprintf("HUB%03d", i))
		case 1:
			ids = append(ids, fmt.Sprintf("940GZZ%03d", i))
		case 2:
			ids = append(ids, fmt.Sprintf("9400ZZ%03d", i))
		default:
			ids = append(ids, fmt.Sprintf("490%03d", i))
		}
	}
	pick := func() string { return ids[r.Intn(len(ids))] }

	for i, id := range ids {
		sp := tfl.StopPoint{ID: id, Modes: []string{"tube"}}
		switch kinds[i] {
		case 1:
			sp.StopType = "NaptanMetroStation"
		case 2:
			sp.StopType = "NaptanMetroPlatform"
			sp.ParentID = pick()
		case 0:
			sp.StopType = "TransportInterchange"
		}
		for c := r.Intn(4); c > 0; c-- {
			child := pick()
			childSP := tfl.StopPoint{ID: child, Modes: []string{"tube"}, StopType: stopTypeFor(child)}
			if r.Intn(2) == 0 {
				childSP.ParentID = pick()
			}
			sp.Children = append(sp.Children, childSP)
		}
		f.add(sp)
	}
	return ids
}

func stopTypeFor(id string) string {
	switch Classify(id, "") {
	case KindStation:
		return "NaptanMetroStation"
	case KindPlatform:
		return "NaptanMetroPlatform"
	case KindHub:
		return "TransportInterchange"
	}
	return ""
}

func TestResolve_AlwaysStationGranularity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		f := newFakeTfL()
		ids := randomHierarchy(r, f, 12)
		h := NewHierarchyResolver(f, "tube", 3)

		for _, id := range ids {
			nodes := h.Resolve(context.Background(), id)
			seen := make(map[string]bool)
			for _, n := range nodes {
				if n.Kind != KindStation || Classify(n.ID, n.StopType) != KindStation {
					t.Fatalf("round %d: Resolve(%q) emitted %s node %q", round, id, n.Kind, n.ID)
				}
				if seen[n.ID] {
					t.Fatalf("round %d: Resolve(%q) emitted %q twice", round, id, n.ID)
				}
				seen[n.ID] = true
			}
		}
	}
}
