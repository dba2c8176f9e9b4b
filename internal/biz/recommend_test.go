package biz

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"moodmap-go/internal/conf"
	"moodmap-go/pkg/geo"
)

func calmProfile() MoodProfile {
	return NewMoodCatalog("", testLogger).ProfileFor("Calm")
}

func TestAggregate_DedupesAndKeepsFirstSeen(t *testing.T) {
	repo := &stubRepo{all: []Place{
		placeAt("a", 40.01, -74.0),
		placeAt("b", 40.0, -74.02),
		placeAt("a-dup", 40.01, -74.0),
		placeAt("c", 40.03, -74.01),
		placeAt("b-dup", 40.00001, -74.02001),
	}}
	uc := newTestRecommend(repo, nil)

	rs, err := uc.Aggregate(context.Background(), CycleInput{
		Reading: readingAt(40.0, -74.0, nil),
		Profile: calmProfile(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Fallback {
		t.Fatal("unexpected fallback")
	}
	var ids []string
	for _, p := range rs.Places {
		ids = append(ids, p.ID)
		if p.IsFallback {
			t.Errorf("place %s marked fallback", p.ID)
		}
		if p.DistanceKm > rs.RadiusKm {
			t.Errorf("place %s at %.2f km beyond %.2f km", p.ID, p.DistanceKm, rs.RadiusKm)
		}
		if p.Reason != rs.Reason {
			t.Errorf("place %s reason = %q", p.ID, p.Reason)
		}
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("places = %v, want %v", ids, want)
	}
	if rs.Mood != MoodCalm || rs.Center != (geo.Coordinate{Lat: 40, Lng: -74}) {
		t.Fatalf("result header = %s %v", rs.Mood, rs.Center)
	}
	if rs.Stats.Duplicates == 0 {
		t.Fatal("duplicates not counted")
	}
}

func TestAggregate_FallbackWhenNothingFound(t *testing.T) {
	repo := &stubRepo{}
	uc := newTestRecommend(repo, nil)
	profile := NewMoodCatalog("", testLogger).ProfileFor("Happy")

	rs, err := uc.Aggregate(context.Background(), CycleInput{Reading: readingAt(0, 0, nil), Profile: profile})
	if err != nil {
		t.Fatal(err)
	}
	if !rs.Fallback {
		t.Fatal("expected fallback result set")
	}
	cfg := uc.Config()
	if n := len(rs.Places); n < 1 || n > min(cfg.FallbackCount, cfg.MaxResults) {
		t.Fatalf("fallback count = %d", n)
	}
	seen := map[string]bool{}
	for _, p := range rs.Places {
		if !p.IsFallback {
			t.Errorf("%s not marked fallback", p.Name)
		}
		if d := geo.DistanceKm(geo.Coordinate{}, p.Position); d > 1.5 {
			t.Errorf("%s is %.2f km from center", p.Name, d)
		}
		if seen[p.ID] {
			t.Errorf("duplicate fallback id %s", p.ID)
		}
		seen[p.ID] = true
	}
	// 每个关键词两级检索都已尝试
	if want := 2 * len(profile.Keywords); rs.Stats.Queries != want {
		t.Fatalf("queries = %d, want %d", rs.Stats.Queries, want)
	}
}

func TestAggregate_DropsOutOfRange(t *testing.T) {
	repo := &stubRepo{all: []Place{
		placeAt("near", 12.98, 77.59),
		placeAt("far", 13.97, 77.59), // ~111 km
	}}
	uc := newTestRecommend(repo, nil)

	rs, err := uc.Aggregate(context.Background(), CycleInput{
		Reading: readingAt(12.97, 77.59, ptr(20)),
		Profile: calmProfile(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Places) != 1 || rs.Places[0].ID != "near" {
		t.Fatalf("places = %+v", rs.Places)
	}
	if rs.Stats.OutOfRange != 1 {
		t.Fatalf("out of range = %d", rs.Stats.OutOfRange)
	}
}

func TestAggregate_OnlyFarResultsFallsBack(t *testing.T) {
	repo := &stubRepo{all: []Place{placeAt("far", 45, 10)}}
	uc := newTestRecommend(repo, nil)

	rs, err := uc.Aggregate(context.Background(), CycleInput{Reading: readingAt(40, -74, nil), Profile: calmProfile()})
	if err != nil {
		t.Fatal(err)
	}
	if !rs.Fallback {
		t.Fatal("expected fallback")
	}
	for _, p := range rs.Places {
		if !p.IsFallback {
			t.Fatalf("real place %s mixed into fallback set", p.ID)
		}
	}
}

func TestAggregate_QueryOrder(t *testing.T) {
	repo := &stubRepo{}
	uc := newTestRecommend(repo, nil)
	profile := calmProfile()

	if _, err := uc.Aggregate(context.Background(), CycleInput{Reading: readingAt(40, -74, nil), Profile: profile}); err != nil {
		t.Fatal(err)
	}
	if len(repo.calls) != 2*len(profile.Keywords) {
		t.Fatalf("calls = %d", len(repo.calls))
	}
	for i, term := range profile.Keywords {
		primary, city := repo.calls[2*i], repo.calls[2*i+1]
		if primary.Q != term || !primary.Bounded {
			t.Errorf("call %d = %+v, want bounded %q", 2*i, primary, term)
		}
		if city.Q != term || city.Bounded {
			t.Errorf("call %d = %+v, want unbounded %q", 2*i+1, city, term)
		}
		if city.ViewBox.Area() <= primary.ViewBox.Area() {
			t.Errorf("city viewbox for %q not wider than primary", term)
		}
	}
}

func TestAggregate_StopsAtMaxResults(t *testing.T) {
	repo := &stubRepo{all: []Place{
		placeAt("a", 40.01, -74.0),
		placeAt("b", 40.02, -74.0),
		placeAt("c", 40.03, -74.0),
	}}
	c := &conf.Recommend{MaxResults: 2}
	uc := newTestRecommend(repo, c)

	rs, err := uc.Aggregate(context.Background(), CycleInput{Reading: readingAt(40, -74, nil), Profile: calmProfile()})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Stats.Queries != 1 || repo.callCount() != 1 {
		t.Fatalf("queries = %d, calls = %d; want 1", rs.Stats.Queries, repo.callCount())
	}
	if len(rs.Places) != 2 {
		t.Fatalf("places = %d, want 2", len(rs.Places))
	}
}

func TestAggregate_Idempotent(t *testing.T) {
	repo := &stubRepo{all: []Place{placeAt("a", 40.01, -74.0), placeAt("b", 39.99, -74.01)}}
	uc := newTestRecommend(repo, nil)
	in := CycleInput{Reading: readingAt(40, -74, ptr(30)), Profile: calmProfile()}

	first, err := uc.Aggregate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	second, err := uc.Aggregate(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Places, second.Places) || first.RadiusKm != second.RadiusKm {
		t.Fatal("same input produced different results")
	}
	if first.CycleID == second.CycleID {
		t.Fatal("cycle ids should differ")
	}

	empty := newTestRecommend(&stubRepo{}, nil)
	f1, _ := empty.Aggregate(context.Background(), in)
	f2, _ := empty.Aggregate(context.Background(), in)
	if !reflect.DeepEqual(f1.Places, f2.Places) {
		t.Fatal("fallback places not deterministic")
	}
}

func TestAggregate_Cancelled(t *testing.T) {
	repo := &stubRepo{all: []Place{placeAt("a", 40.01, -74.0)}}
	uc := newTestRecommend(repo, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rs, err := uc.Aggregate(ctx, CycleInput{Reading: readingAt(40, -74, nil), Profile: calmProfile()})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if rs != nil {
		t.Fatal("cancelled cycle produced results")
	}
}

func TestNewRecommendConfig(t *testing.T) {
	rc := NewRecommendConfig(nil)
	if rc.MaxResults != 20 || rc.PrimaryRadiusKm != 6 || rc.CityRadiusKm() != 30 {
		t.Fatalf("defaults = %+v", rc)
	}
	rc = NewRecommendConfig(&conf.Recommend{
		MaxResults:      5,
		PrimaryRadiusKm: 4,
		Radius:          &conf.Recommend_Radius{NoAccuracyKm: 12, BaseKm: 10, AccuracyScale: 1, MinKm: 5, MaxKm: 40},
	})
	if rc.MaxResults != 5 || rc.CityRadiusKm() != 20 || rc.Radius.NoAccuracyKm != 12 {
		t.Fatalf("overrides = %+v", rc)
	}
}

func TestFallbackPlaces(t *testing.T) {
	center := geo.Coordinate{Lat: 51.5, Lng: -0.12}
	places := fallbackPlaces(center, "why", 6, 4)
	if len(places) != 6 {
		t.Fatalf("len = %d", len(places))
	}
	if got := fallbackPlaces(center, "why", 50, 4); len(got) != len(fallbackOffsets) {
		t.Fatalf("count not capped: %d", len(got))
	}
	if got := fallbackPlaces(center, "why", 0, 4); len(got) != 0 {
		t.Fatalf("zero count returned %d", len(got))
	}
}

func TestFallbackPlaces_NearPoleAndAntimeridian(t *testing.T) {
	for _, center := range []geo.Coordinate{
		{Lat: 89.995, Lng: 179.995},
		{Lat: -89.995, Lng: -179.995},
	} {
		places := fallbackPlaces(center, "why", len(fallbackOffsets), 4)
		for _, p := range places {
			if !p.Position.Valid() {
				t.Fatalf("center %v: %s at %v is out of range", center, p.Name, p.Position)
			}
			if p.DistanceKm > 1.5 {
				t.Errorf("center %v: %s is %.2f km away", center, p.Name, p.DistanceKm)
			}
		}
		if len(places) != len(fallbackOffsets) {
			t.Fatalf("len = %d", len(places))
		}
	}
}

func TestAggregate_DeadlineFallsBack(t *testing.T) {
	repo := &stubRepo{block: make(chan struct{})}
	uc := newTestRecommend(repo, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rs, err := uc.Aggregate(ctx, CycleInput{
		Reading: readingAt(0, 0, nil),
		Profile: NewMoodCatalog("", testLogger).ProfileFor("Happy"),
	})
	if err != nil {
		t.Fatalf("err = %v, want fallback result set", err)
	}
	if !rs.Fallback || len(rs.Places) == 0 {
		t.Fatalf("result set = %+v", rs)
	}
	// 超时后不再发起检索
	if rs.Stats.Queries != 1 || repo.callCount() != 1 {
		t.Fatalf("queries = %d, calls = %d", rs.Stats.Queries, repo.callCount())
	}
}

func TestAggregate_DeadlineKeepsPartialResults(t *testing.T) {
	repo := &stubRepo{all: []Place{placeAt("a", 40.01, -74.0)}, hangAfter: 2}
	uc := newTestRecommend(repo, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rs, err := uc.Aggregate(ctx, CycleInput{Reading: readingAt(40, -74, nil), Profile: calmProfile()})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Fallback || len(rs.Places) != 1 || rs.Places[0].ID != "a" {
		t.Fatalf("result set = %+v", rs)
	}
	if rs.Stats.Queries != 3 {
		t.Fatalf("queries = %d, want 3", rs.Stats.Queries)
	}
}

func TestAggregate_SupersededCause(t *testing.T) {
	repo := &stubRepo{all: []Place{placeAt("a", 40.01, -74.0)}}
	uc := newTestRecommend(repo, nil)
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(ErrCycleSuperseded)

	rs, err := uc.Aggregate(ctx, CycleInput{Reading: readingAt(40, -74, nil), Profile: calmProfile()})
	if !errors.Is(err, ErrCycleSuperseded) || rs != nil {
		t.Fatalf("Aggregate = %v, %v; want superseded", rs, err)
	}
	if repo.callCount() != 0 {
		t.Fatal("superseded cycle issued queries")
	}
}
