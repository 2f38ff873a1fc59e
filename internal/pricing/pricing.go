package pricing

import (
	"math"
	"time"

	"github.com/example/lodging-aggregator/internal/models"
)

type DemandLevel int

const (
	DemandLow DemandLevel = iota
	DemandMedium
	DemandHigh
)

// Signals are the market inputs to the markup formula. They are derived per
// response and never persisted.
type Signals struct {
	Demand      DemandLevel
	PeakSeason  bool
	Competition float64 // [0,1], 1 = saturated market
}

// Adjuster computes the dynamic markup applied to partner-sourced listings at
// response time. The cached canonical listing keeps its base price; only the
// displayed price carries the markup.
type Adjuster struct {
	// BaseMarkupPercent is the configured starting markup, e.g. 12 for 12%.
	BaseMarkupPercent float64
}

func NewAdjuster(baseMarkupPercent float64) *Adjuster {
	return &Adjuster{BaseMarkupPercent: baseMarkupPercent}
}

// Markup returns the adjusted markup percentage for the given signals and
// listing rating.
func (a *Adjuster) Markup(s Signals, rating float64) float64 {
	demand := 1.0
	switch s.Demand {
	case DemandLow:
		demand = 0.9
	case DemandHigh:
		demand = 1.2
	}

	season := 1.0
	if s.PeakSeason {
		season = 1.15
	}

	competition := clamp01(s.Competition)

	quality := 1.0
	if rating > 4.5 {
		quality = 1.05
	}

	return a.BaseMarkupPercent * demand * season * (1 - competition*0.1) * quality
}

// AdjustedPrice applies the markup to a base nightly price and rounds to the
// currency's minor-unit precision.
func (a *Adjuster) AdjustedPrice(base float64, currency string, s Signals, rating float64) float64 {
	price := base * (1 + a.Markup(s, rating)/100)
	return roundMinorUnits(price, currency)
}

// DeriveSignals turns a query and the merged result density into pricing
// signals. Thresholds are product-tunable and deliberately kept in one place:
//   - demand follows booking lead time: under a week out is high, under a
//     month medium, otherwise low; dateless searches are medium
//   - peak season is the southern-hemisphere high season plus July
//   - competition grows with the size of the merged result set, saturating
//     at 50 comparable listings
func DeriveSignals(q *models.SearchQuery, mergedCount int, now time.Time) Signals {
	s := Signals{Demand: DemandMedium}

	if q.CheckIn != nil {
		lead := q.CheckIn.Sub(now)
		switch {
		case lead < 7*24*time.Hour:
			s.Demand = DemandHigh
		case lead < 30*24*time.Hour:
			s.Demand = DemandMedium
		default:
			s.Demand = DemandLow
		}
		switch q.CheckIn.Month() {
		case time.December, time.January, time.February, time.July:
			s.PeakSeason = true
		}
	}

	s.Competition = clamp01(float64(mergedCount) / 50)
	return s
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// zero-decimal currencies per ISO 4217 minor units
var zeroMinorUnit = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
	"CLP": true,
}

func roundMinorUnits(price float64, currency string) float64 {
	if zeroMinorUnit[currency] {
		return math.Round(price)
	}
	return math.Round(price*100) / 100
}
