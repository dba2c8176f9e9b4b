package data

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"moodmap-go/internal/biz"
	"moodmap-go/internal/conf"
	"moodmap-go/pkg/geo"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
)

func newTestRepo(t *testing.T, h http.HandlerFunc) (biz.SearchRepo, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := testConf(srv.URL)
	c.Geocoder.CacheTTL = nil
	d := newTestData(t, c)
	return NewSearchRepo(d, log.NewStdLogger(io.Discard)), srv
}

func collect(seq func(func(biz.Place) bool)) []biz.Place {
	var out []biz.Place
	for p := range seq {
		out = append(out, p)
	}
	return out
}

func TestSearchPlaces_Decode(t *testing.T) {
	repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"place_id": 101, "lat": "12.9716", "lon": "77.5946", "display_name": "Cubbon Park, Bengaluru, India", "category": "leisure", "type": "park"},
			{"place_id": 102, "lat": 12.98, "lon": 77.6, "display_name": ""},
			{"place_id": 103, "lat": "abc", "lon": "77.6", "display_name": "Broken"},
			{"place_id": 104, "display_name": "No coords"},
			{"lat": "12.99", "lon": "77.61", "class": "amenity", "display_name": "Cafe Coffee Day, MG Road"}
		]`)
	})

	got := collect(repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "park", Limit: 5}))
	if len(got) != 3 {
		t.Fatalf("expected 3 places, got %d: %+v", len(got), got)
	}
	tests := []struct {
		id, name, category string
		lat, lng           float64
	}{
		{"101", "Cubbon Park", "leisure", 12.9716, 77.5946},
		{"102", "park 2", "", 12.98, 77.6},
		{"12.9900,77.6100", "Cafe Coffee Day", "amenity", 12.99, 77.61},
	}
	for i, tt := range tests {
		p := got[i]
		if p.ID != tt.id || p.Name != tt.name || p.Category != tt.category {
			t.Errorf("place %d = %+v, want id=%s name=%s category=%s", i, p, tt.id, tt.name, tt.category)
		}
		if p.Position != (geo.Coordinate{Lat: tt.lat, Lng: tt.lng}) {
			t.Errorf("place %d position = %v", i, p.Position)
		}
	}
}

func TestSearchPlaces_RequestParams(t *testing.T) {
	var got http.Header
	var query map[string][]string
	repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		query = r.URL.Query()
		if r.URL.Path != "/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `[]`)
	})

	center := geo.Coordinate{Lat: 12.9716, Lng: 77.5946}
	p := biz.BuildQuery("park", center, 6, true)
	_ = collect(repo.SearchPlaces(context.Background(), p))

	if ua := got.Get("User-Agent"); ua == "" {
		t.Error("missing User-Agent")
	}
	if got.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	want := map[string]string{
		"q":              "park",
		"format":         "jsonv2",
		"addressdetails": "1",
		"extratags":      "1",
		"bounded":        "1",
		"viewbox":        p.ViewBox.ViewBox(),
	}
	for k, v := range want {
		if query[k] == nil || query[k][0] != v {
			t.Errorf("param %s = %v, want %s", k, query[k], v)
		}
	}
}

func TestSearchPlaces_FailuresYieldNothing(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
	}{
		{"http 500", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) }},
		{"http 429", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
		{"not an array", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `{"error":"oops"}`) }},
		{"garbage", func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `<html>`) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepo(t, tt.h)
			if got := collect(repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "cafe"})); len(got) != 0 {
				t.Fatalf("expected empty sequence, got %d", len(got))
			}
		})
	}
}

func TestSearchPlaces_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	d := newTestData(t, testConf(url))
	repo := NewSearchRepo(d, log.NewStdLogger(io.Discard))
	if got := collect(repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "cafe"})); len(got) != 0 {
		t.Fatalf("expected empty sequence, got %d", len(got))
	}
}

func TestSearchPlaces_SingleUse(t *testing.T) {
	var hits atomic.Int32
	repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[{"place_id":1,"lat":"1","lon":"2","display_name":"A"}]`)
	})
	seq := repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "a"})
	if n := len(collect(seq)); n != 1 {
		t.Fatalf("first range = %d", n)
	}
	if n := len(collect(seq)); n != 0 {
		t.Fatalf("second range = %d, want 0", n)
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestSearchPlaces_Lazy(t *testing.T) {
	var hits atomic.Int32
	repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[]`)
	})
	_ = repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "a"})
	if hits.Load() != 0 {
		t.Fatal("request issued before iteration")
	}
}

func TestSearchPlaces_Cached(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `[{"place_id":1,"lat":"1","lon":"2","display_name":"A"}]`)
	}))
	defer srv.Close()
	c := testConf(srv.URL)
	c.Geocoder.CacheTTL = conf.NewDuration(time.Minute)
	repo := NewSearchRepo(newTestData(t, c), log.NewStdLogger(io.Discard))

	for i := 0; i < 3; i++ {
		if n := len(collect(repo.SearchPlaces(context.Background(), biz.SearchParams{Q: "a"}))); n != 1 {
			t.Fatalf("round %d: got %d places", i, n)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("hits = %d, want 1", hits.Load())
	}
}

func TestSearchPlaces_Cancelled(t *testing.T) {
	repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		_, _ = io.WriteString(w, `[{"place_id":1,"lat":"1","lon":"2","display_name":"A"}]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if n := len(collect(repo.SearchPlaces(ctx, biz.SearchParams{Q: "a"}))); n != 0 {
		t.Fatalf("cancelled search yielded %d", n)
	}
}

func TestGeocode(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *errors.Error
		lat    float64
	}{
		{"match", 200, `[{"place_id":7,"lat":"48.8566","lon":"2.3522","display_name":"Paris, France"}]`, nil, 48.8566},
		{"no match", 200, `[]`, biz.ErrManualLookupNoMatch, 0},
		{"server error", 503, ``, biz.ErrManualLookupTransport, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, _ := newTestRepo(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Query().Get("limit") != "1" {
					t.Errorf("limit = %s", r.URL.Query().Get("limit"))
				}
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			p, err := repo.Geocode(context.Background(), "Paris")
			if tt.want != nil {
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Position.Lat != tt.lat {
				t.Fatalf("lat = %v", p.Position.Lat)
			}
		})
	}
}

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`"12.5"`, 12.5, true},
		{`12.5`, 12.5, true},
		{`" -3.25 "`, -3.25, true},
		{`null`, 0, false},
		{``, 0, false},
		{`"NaN"`, 0, false},
		{`"Inf"`, 0, false},
		{`"x"`, 0, false},
		{`true`, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseCoordinate([]byte(tt.raw))
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseCoordinate(%s) = %v,%v want %v,%v", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}
