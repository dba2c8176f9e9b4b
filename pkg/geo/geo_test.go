package geo

import (
	"math"
	"testing"
	"time"
)

func TestDistanceKm_ZeroAndSymmetric(t *testing.T) {
	points := []Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: 40.0, Lng: -74.0},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 89.9, Lng: 179.9},
		{Lat: -90, Lng: -180},
	}
	for _, a := range points {
		if d := DistanceKm(a, a); d != 0 {
			t.Errorf("DistanceKm(%v,%v) = %v, want 0", a, a, d)
		}
		for _, b := range points {
			ab, ba := DistanceKm(a, b), DistanceKm(b, a)
			if math.Abs(ab-ba) > 1e-9 {
				t.Errorf("asymmetric distance %v->%v: %v vs %v", a, b, ab, ba)
			}
		}
	}
}

func TestDistanceKm_Known(t *testing.T) {
	// 纽约 -> 伦敦 约 5570km
	d := DistanceKm(Coordinate{Lat: 40.7128, Lng: -74.0060}, Coordinate{Lat: 51.5074, Lng: -0.1278})
	if d < 5550 || d > 5590 {
		t.Errorf("NYC-London = %.1f km, want ~5570", d)
	}
	// 赤道上 0.01 度约 1.11km
	d = DistanceKm(Coordinate{}, Coordinate{Lat: 0.01})
	if math.Abs(d-1.1119) > 0.001 {
		t.Errorf("0.01deg = %.4f km, want 1.1119", d)
	}
}

func TestDistanceKm_NonFinite(t *testing.T) {
	cases := []Coordinate{
		{Lat: math.NaN(), Lng: 0},
		{Lat: 0, Lng: math.Inf(1)},
		{Lat: math.Inf(-1), Lng: math.NaN()},
	}
	for _, c := range cases {
		if d := DistanceKm(c, Coordinate{}); !math.IsInf(d, 1) {
			t.Errorf("DistanceKm(%v) = %v, want +Inf", c, d)
		}
		if d := DistanceKm(Coordinate{}, c); !math.IsInf(d, 1) {
			t.Errorf("DistanceKm(_, %v) = %v, want +Inf", c, d)
		}
	}
}

func TestRoundKey(t *testing.T) {
	a := RoundKey(Coordinate{Lat: 40.00001, Lng: -74.00002}, 4)
	b := RoundKey(Coordinate{Lat: 40.00004, Lng: -74.00004}, 4)
	if a != b {
		t.Errorf("keys differ: %q vs %q", a, b)
	}
	if a != "40.0000,-74.0000" {
		t.Errorf("RoundKey = %q", a)
	}
	if RoundKey(Coordinate{Lat: 40.0001}, 4) == RoundKey(Coordinate{Lat: 40.0002}, 4) {
		t.Error("distinct 4-decimal coordinates share a key")
	}
}

func TestNewLocationReading(t *testing.T) {
	now := time.Now()
	neg := -5.0
	r, err := NewLocationReading(10, 20, &neg, now)
	if err != nil {
		t.Fatal(err)
	}
	if r.HasAccuracy() {
		t.Error("negative accuracy must be treated as unknown")
	}
	if _, err := NewLocationReading(91, 0, nil, now); err == nil {
		t.Error("expected error for latitude 91")
	}
	if _, err := NewLocationReading(math.NaN(), 0, nil, now); err == nil {
		t.Error("expected error for NaN latitude")
	}
}

func TestSameFix(t *testing.T) {
	a10, b10, a20 := 10.0, 10.0, 20.0
	base := LocationReading{Coordinate: Coordinate{Lat: 1, Lng: 2}, Accuracy: &a10}
	tests := []struct {
		name  string
		other LocationReading
		want  bool
	}{
		{"identical", LocationReading{Coordinate: Coordinate{Lat: 1, Lng: 2}, Accuracy: &b10, Timestamp: time.Now()}, true},
		{"accuracy changed", LocationReading{Coordinate: Coordinate{Lat: 1, Lng: 2}, Accuracy: &a20}, false},
		{"accuracy dropped", LocationReading{Coordinate: Coordinate{Lat: 1, Lng: 2}}, false},
		{"moved", LocationReading{Coordinate: Coordinate{Lat: 1.0001, Lng: 2}, Accuracy: &a10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameFix(tt.other); got != tt.want {
				t.Errorf("SameFix = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCoordinateOffset(t *testing.T) {
	tests := []struct {
		name       string
		c          Coordinate
		dLat, dLng float64
		want       Coordinate
	}{
		{"plain", Coordinate{Lat: 10, Lng: 20}, 0.5, -0.5, Coordinate{Lat: 10.5, Lng: 19.5}},
		{"north pole", Coordinate{Lat: 89.995, Lng: 0}, 0.01, 0, Coordinate{Lat: 90, Lng: 0}},
		{"south pole", Coordinate{Lat: -89.995, Lng: 0}, -0.01, 0, Coordinate{Lat: -90, Lng: 0}},
		{"antimeridian east", Coordinate{Lat: 0, Lng: 179.995}, 0, 0.01, Coordinate{Lat: 0, Lng: -179.995}},
		{"antimeridian west", Coordinate{Lat: 0, Lng: -179.995}, 0, -0.01, Coordinate{Lat: 0, Lng: 179.995}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.c.Offset(tt.dLat, tt.dLng)
			if !got.Valid() {
				t.Fatalf("Offset = %v, not valid", got)
			}
			if math.Abs(got.Lat-tt.want.Lat) > 1e-9 || math.Abs(got.Lng-tt.want.Lng) > 1e-9 {
				t.Errorf("Offset = %v, want %v", got, tt.want)
			}
		})
	}
}
