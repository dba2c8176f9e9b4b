package geo

import "testing"

func acc(v float64) *LocationReading {
	return &LocationReading{Accuracy: &v}
}

func TestSearchRadiusKm(t *testing.T) {
	tests := []struct {
		name    string
		reading *LocationReading
		want    float64
	}{
		{"no reading", nil, 35},
		{"unknown accuracy", &LocationReading{}, 35},
		{"precise", acc(20), 20.06},
		{"city block", acc(1000), 23},
		{"clamps at upper band", acc(20000), 80},
		{"far beyond upper band", acc(500000), 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveSearchRadiusKm(tt.reading)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("DeriveSearchRadiusKm = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSearchRadiusKm_Monotonic(t *testing.T) {
	p := DefaultRadiusPolicy()
	prev := 0.0
	for m := 0.0; m <= 40000; m += 250 {
		got := p.SearchRadiusKm(acc(m))
		if got < prev {
			t.Fatalf("radius decreased at %vm: %v < %v", m, got, prev)
		}
		if got < p.MinKm || got > p.MaxKm {
			t.Fatalf("radius %v outside [%v,%v]", got, p.MinKm, p.MaxKm)
		}
		prev = got
	}
}

func TestSearchRadiusKm_MinClamp(t *testing.T) {
	p := RadiusPolicy{NoAccuracyKm: 1, BaseKm: 2, AccuracyScale: 1, MinKm: 10, MaxKm: 80}
	if got := p.SearchRadiusKm(acc(0)); got != 10 {
		t.Errorf("got %v, want lower band 10", got)
	}
	if got := p.SearchRadiusKm(nil); got != 10 {
		t.Errorf("got %v, want lower band 10 for unknown accuracy", got)
	}
}
