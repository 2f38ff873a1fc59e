package pricing

import (
	"math"
	"testing"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

func TestMarkupFormula(t *testing.T) {
	a := NewAdjuster(10)

	tests := []struct {
		name   string
		s      Signals
		rating float64
		want   float64
	}{
		{"baseline medium demand", Signals{Demand: DemandMedium}, 4.0, 10},
		{"low demand", Signals{Demand: DemandLow}, 4.0, 9},
		{"high demand", Signals{Demand: DemandHigh}, 4.0, 12},
		{"peak season", Signals{Demand: DemandMedium, PeakSeason: true}, 4.0, 11.5},
		{"full competition", Signals{Demand: DemandMedium, Competition: 1}, 4.0, 9},
		{"quality bonus", Signals{Demand: DemandMedium}, 4.6, 10.5},
		{
			"all factors",
			Signals{Demand: DemandHigh, PeakSeason: true, Competition: 0.5},
			4.8,
			10 * 1.2 * 1.15 * 0.95 * 1.05,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Markup(tt.s, tt.rating)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("markup = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMarkupClampsCompetition(t *testing.T) {
	a := NewAdjuster(10)
	over := a.Markup(Signals{Demand: DemandMedium, Competition: 3}, 4.0)
	atOne := a.Markup(Signals{Demand: DemandMedium, Competition: 1}, 4.0)
	if over != atOne {
		t.Fatalf("competition above 1 must clamp: %v vs %v", over, atOne)
	}
}

func TestAdjustedPriceRounding(t *testing.T) {
	a := NewAdjuster(10)
	s := Signals{Demand: DemandMedium}

	got := a.AdjustedPrice(99.99, "BRL", s, 4.0)
	if got != 109.99 {
		t.Fatalf("BRL price = %v, want 109.99", got)
	}

	got = a.AdjustedPrice(10000, "JPY", s, 4.0)
	if got != math.Trunc(got) {
		t.Fatalf("JPY must round to whole units, got %v", got)
	}
}

func TestDeriveSignals(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	soon := now.AddDate(0, 0, 3)
	q := &models.SearchQuery{CheckIn: &soon}
	s := DeriveSignals(q, 10, now)
	if s.Demand != DemandHigh {
		t.Errorf("3-day lead should be high demand, got %v", s.Demand)
	}
	if s.PeakSeason {
		t.Errorf("march check-in is not peak season")
	}

	far := now.AddDate(0, 4, 0) // july
	q = &models.SearchQuery{CheckIn: &far}
	s = DeriveSignals(q, 100, now)
	if s.Demand != DemandLow {
		t.Errorf("4-month lead should be low demand, got %v", s.Demand)
	}
	if !s.PeakSeason {
		t.Errorf("july check-in should be peak season")
	}
	if s.Competition != 1 {
		t.Errorf("100 merged listings should saturate competition, got %v", s.Competition)
	}

	s = DeriveSignals(&models.SearchQuery{}, 0, now)
	if s.Demand != DemandMedium || s.Competition != 0 {
		t.Errorf("dateless empty search should be medium/zero, got %+v", s)
	}
}
