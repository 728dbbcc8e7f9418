package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Never2333/tfl-status/internal/snapshot"
)

const modeListing = `[
  {"id":"940GZZLUWLO","commonName":"Waterloo Underground Station","stopType":"NaptanMetroStation","modes":["tube"],
   "lineModeGroups":[{"modeName":"tube","lineIdentifier":["bakerloo","jubilee","northern","waterloo-city"]}]},
  {"id":"940GZZLUBNK","commonName":"Bank Underground Station","stopType":"NaptanMetroStation","modes":["tube"],
   "lineModeGroups":[{"modeName":"tube","lineIdentifier":["central","northern","waterloo-city"]}]},
  {"id":"9400ZZLUBNK1","commonName":"Bank","stopType":"NaptanMetroPlatform","modes":["tube"]}
]`

// setupTfL points the tool at a fake TfL API and a temporary snapshot file
func setupTfL(t *testing.T, healthy bool) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy && r.URL.Path == "/StopPoint/Mode/tube" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(modeListing))
			return
		}
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "tube-stations.json")
	t.Setenv("TFL_BASE_URL", srv.URL)
	t.Setenv("SNAPSHOT_BACKEND", "file")
	t.Setenv("SNAPSHOT_PATH", path)
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("INDEX_BUILD_TIMEOUT", "10s")

	buildIfStale = false
	buildOut = ""
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeSnapshot(t *testing.T, path string, generatedAt time.Time) {
	t.Helper()
	doc := &snapshot.Document{
		GeneratedAt: generatedAt,
		BuildID:     "existing",
		Stations:    []snapshot.Entry{{ID: "940GZZLUOXC", Name: "Oxford Circus", Lines: []string{"victoria"}}},
	}
	if err := snapshot.NewFileStore(path).Save(context.Background(), doc); err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}
}

func loadSnapshot(t *testing.T, path string) *snapshot.Document {
	t.Helper()
	doc, err := snapshot.NewFileStore(path).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	return doc
}

func TestSnapshotBuild_WritesSnapshot(t *testing.T) {
	path := setupTfL(t, true)

	out, err := run(t, "snapshot", "build")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	doc := loadSnapshot(t, path)
	if len(doc.Stations) != 2 {
		t.Fatalf("snapshot has %d stations, expected the 2 station-granularity entries", len(doc.Stations))
	}
	if doc.Stations[0].Name != "Bank" || doc.Stations[1].Name != "Waterloo" {
		t.Errorf("stations = %+v, expected cleaned names sorted", doc.Stations)
	}
	if doc.BuildID == "" || doc.GeneratedAt.IsZero() {
		t.Errorf("snapshot missing build metadata: %+v", doc)
	}
}

func TestSnapshotBuild_FailureKeepsExisting(t *testing.T) {
	path := setupTfL(t, false)
	writeSnapshot(t, path, time.Now().Add(-30*24*time.Hour))
	before, _ := os.ReadFile(path)

	out, err := run(t, "snapshot", "build")
	if err != nil {
		t.Fatalf("build should succeed while a snapshot exists: %v", err)
	}
	if !strings.Contains(out, "keeping existing snapshot") {
		t.Errorf("output = %q, expected a note about the kept snapshot", out)
	}
	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Error("a failed build modified the existing snapshot")
	}
}

func TestSnapshotBuild_FailureWithoutSnapshot(t *testing.T) {
	path := setupTfL(t, false)

	if _, err := run(t, "snapshot", "build"); err == nil {
		t.Fatal("expected an error when the build fails and nothing exists")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no snapshot file should have been written")
	}
}

func TestSnapshotBuild_IfStale(t *testing.T) {
	path := setupTfL(t, true)
	writeSnapshot(t, path, time.Now().Add(-time.Hour))

	out, err := run(t, "snapshot", "build", "--if-stale")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(out, "skipping build") {
		t.Errorf("output = %q, expected the fresh snapshot to be kept", out)
	}
	if doc := loadSnapshot(t, path); doc.BuildID != "existing" {
		t.Errorf("BuildID = %q, expected the existing snapshot", doc.BuildID)
	}
}

func TestSnapshotInfo(t *testing.T) {
	path := setupTfL(t, true)
	writeSnapshot(t, path, time.Now().Add(-time.Hour))

	out, err := run(t, "snapshot", "info")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"build:      existing", "stations:   1", "stale:      false"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
