// Package rules contains the pure calculation logic for the monthly property lifecycle.
// This package is PURE and must NOT import any infrastructure packages.
package rules

import (
	"math"
	"math/rand"

	"github.com/MRamiBalles/immolife/internal/domain/property"
)

const (
	// RentYield is the monthly rent as a fraction of the original price.
	RentYield = 0.004

	goodMaintenanceRatio = 0.15
	maintenanceBonus     = 0.5
	trendRedrawChance    = 0.05
)

// TrendMultiplier scales the monthly appreciation rate by market trend.
func TrendMultiplier(t property.MarketTrend) float64 {
	switch t {
	case property.TrendDeclining:
		return 0.3
	case property.TrendStable:
		return 0.8
	case property.TrendGrowing:
		return 1.2
	case property.TrendBooming:
		return 1.8
	default:
		return 1
	}
}

// DegradeCondition applies one month of wear. Well maintained properties decay 0.5 points slower,
// run-down ones get pricier to maintain.
func DegradeCondition(p *property.Property) {
	rent := p.MonthlyRent
	if rent == 0 {
		rent = 1
	}
	bonus := 0.0
	if float64(p.MaintenanceCost)/float64(rent) > goodMaintenanceRatio {
		bonus = maintenanceBonus
	}

	p.Condition = ClampCondition(p.Condition - (p.ConditionDecayRate - bonus))

	switch {
	case p.Condition < 30:
		p.MaintenanceCost = int64(math.Round(float64(p.MonthlyRent) * 0.2))
	case p.Condition < 50:
		p.MaintenanceCost = int64(math.Round(float64(p.MonthlyRent) * 0.15))
	}
}

// MonthlyAppreciationRate is the fractional price change for one month.
func MonthlyAppreciationRate(p *property.Property) float64 {
	rate := p.AppreciationRate / 12 / 100
	rate *= TrendMultiplier(p.MarketTrend)
	rate *= math.Max(0.5, p.Condition/100)
	return rate
}

// Appreciate compounds one month of appreciation into the price and occasionally redraws the trend.
// Prices are not capped; a negative rate can at most bring the price to zero.
func Appreciate(rng *rand.Rand, p *property.Property) {
	p.Price *= 1 + MonthlyAppreciationRate(p)
	if p.Price < 0 {
		p.Price = 0
	}

	if rng.Float64() < trendRedrawChance {
		p.MarketTrend = property.RandomTrend(rng)
	}
}

// BaseRent derives rent from the immutable original price, never from the current price.
func BaseRent(originalPrice, condition float64, loc property.Location) int64 {
	conditionFactor := math.Max(0.6, condition/100)
	return int64(math.Round(originalPrice * RentYield * conditionFactor * loc.PriceMultiplier))
}

// RebaseRent recomputes the monthly rent from original price, condition and location.
func RebaseRent(p *property.Property) {
	p.MonthlyRent = BaseRent(p.OriginalPrice, p.Condition, p.Location)
}

// AgeMonth runs the full monthly lifecycle on one property: decay, appreciation, rent re-basing.
func AgeMonth(rng *rand.Rand, p *property.Property) {
	DegradeCondition(p)
	Appreciate(rng, p)
	RebaseRent(p)
}

// NetRent is what an owned property contributes to the ledger this month.
func NetRent(p *property.Property) int64 {
	if !p.HasTenant() {
		return 0
	}
	return p.MonthlyRent - p.MaintenanceCost
}

// ClampCondition keeps a condition value within [0,100].
func ClampCondition(c float64) float64 {
	return math.Max(0, math.Min(100, c))
}
