package tfl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "", "secret", 2*time.Second)
}

func TestStopPoint_DecodesChildrenAndAppKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/StopPoint/HUBWAT" {
			t.Errorf("path = %q, expected /StopPoint/HUBWAT", r.URL.Path)
		}
		if got := r.URL.Query().Get("app_key"); got != "secret" {
			t.Errorf("app_key = %q, expected %q", got, "secret")
		}
		w.Write([]byte(`{"id":"HUBWAT","commonName":"Waterloo","stopType":"TransportInterchange",
			"children":[{"id":"940GZZLUWLO","commonName":"Waterloo Underground Station","stopType":"NaptanMetroStation",
			"lineModeGroups":[{"modeName":"tube","lineIdentifier":["bakerloo","jubilee"]}]}]}`))
	})

	sp, err := c.StopPoint(context.Background(), "HUBWAT")
	if err != nil {
		t.Fatalf("StopPoint failed: %v", err)
	}
	if len(sp.Children) != 1 || sp.Children[0].ID != "940GZZLUWLO" {
		t.Fatalf("children = %+v, expected one 940GZZLUWLO child", sp.Children)
	}
	if got := sp.Children[0].LineModeGroups[0].LineIdentifier; len(got) != 2 {
		t.Errorf("lineIdentifier = %v, expected 2 entries", got)
	}
}

func TestStopPoint_HTTPErrorIsDistinct(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	})

	_, err := c.StopPoint(context.Background(), "940GZZLUWLO")
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("error = %v, expected *HTTPError", err)
	}
	if he.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, expected 429", he.StatusCode)
	}
	if strings.Contains(he.Error(), "secret") {
		t.Error("error message must not leak the app key")
	}
}

func TestStopPoint_Malformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.StopPoint(context.Background(), "940GZZLUWLO")
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("error = %v, expected ErrMalformed", err)
	}
}

func TestStopPointsByMode_AcceptsEnvelopeAndArray(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"array", `[{"id":"940GZZLUBKG"},{"id":"940GZZLUWLO"}]`, 2},
		{"envelope", `{"stopPoints":[{"id":"940GZZLUBKG"}],"pageSize":1000,"total":1}`, 1},
		{"null", `null`, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			})
			points, err := c.StopPointsByMode(context.Background(), "tube")
			if err != nil {
				t.Fatalf("StopPointsByMode failed: %v", err)
			}
			if len(points) != tc.want {
				t.Errorf("len(points) = %d, expected %d", len(points), tc.want)
			}
		})
	}
}

func TestSearch_FallsBackToQueryEndpoint(t *testing.T) {
	var primary, fallback atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/StopPoint/Search/"):
			primary.Add(1)
			http.Error(w, "boom", http.StatusInternalServerError)
		case r.URL.Path == "/StopPoint":
			fallback.Add(1)
			if got := r.URL.Query().Get("query"); got != "bank" {
				t.Errorf("fallback query = %q, expected %q", got, "bank")
			}
			w.Write([]byte(`[{"id":"940GZZLUBNK","commonName":"Bank Underground Station"}]`))
		default:
			http.NotFound(w, r)
		}
	})

	matches, err := c.Search(context.Background(), "bank", "tube")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if primary.Load() != 1 || fallback.Load() != 1 {
		t.Errorf("primary=%d fallback=%d, expected one call each", primary.Load(), fallback.Load())
	}
	if len(matches) != 1 || matches[0].Name != "Bank Underground Station" {
		t.Errorf("matches = %+v, expected the fallback stop point", matches)
	}
}

func TestSearch_BothEndpointsFail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	})

	if _, err := c.Search(context.Background(), "bank", "tube"); err == nil {
		t.Error("Search should fail when both endpoints fail")
	}
}

func TestLineStatus_JoinsIDs(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Line/victoria,jubilee/Status" {
			t.Errorf("path = %q, expected joined line ids", r.URL.Path)
		}
		w.Write([]byte(`[{"id":"victoria","name":"Victoria","lineStatuses":[{"statusSeverityDescription":"Good Service"}]}]`))
	})

	lines, err := c.LineStatus(context.Background(), []string{"victoria", "jubilee"})
	if err != nil {
		t.Fatalf("LineStatus failed: %v", err)
	}
	if len(lines) != 1 || lines[0].LineStatuses[0].StatusSeverityDescription != "Good Service" {
		t.Errorf("lines = %+v", lines)
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(&HTTPError{StatusCode: http.StatusNotFound}) {
		t.Error("IsNotFound should be true for 404")
	}
	if IsNotFound(errors.New("other")) {
		t.Error("IsNotFound should be false for plain errors")
	}
}
