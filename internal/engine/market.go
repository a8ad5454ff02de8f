package engine

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"

	"github.com/MRamiBalles/immolife/internal/domain/property"
	"github.com/MRamiBalles/immolife/internal/events"
)

const (
	InitialListingCount = 20

	minNewListings = 2
	maxNewListings = 5
	maxLifetime    = 6
)

// listingProfile captures the two generation regimes: the opening market and churn.
type listingProfile struct {
	rentedChance  float64
	maxAge        int
	ageWear       float64
	conditionLuck float64
	minCondition  float64
	decayMin      float64
	decaySpread   float64
	names         []string
}

var (
	initialProfile = listingProfile{
		rentedChance: 0.7, maxAge: 50, ageWear: 1.5, conditionLuck: 20, minCondition: 20,
		decayMin: 0.5, decaySpread: 1.0, names: property.InitialNames,
	}
	churnProfile = listingProfile{
		rentedChance: 0.6, maxAge: 60, ageWear: 1.2, conditionLuck: 25, minCondition: 15,
		decayMin: 0.08, decaySpread: 0.12, names: property.ListingNames,
	}
)

// generateListing builds one random property entering the market at absMonth.
func generateListing(rng *rand.Rand, prof listingProfile, id, tenantID string, year, absMonth int) property.Property {
	loc := property.RandomDistrict(rng)
	typ := property.RandomType(rng)
	price := math.Round(property.BasePrice(typ) * loc.PriceMultiplier * (0.8 + rng.Float64()*0.4))
	rent := int64(math.Round(price * 0.004 * (0.8 + rng.Float64()*0.4)))

	p := property.Property{
		ID:              id,
		Type:            typ,
		Price:           price,
		OriginalPrice:   price,
		MonthlyRent:     rent,
		Location:        loc,
		MaintenanceCost: int64(math.Round(float64(rent) * 0.1)),
	}

	if rng.Float64() < prof.rentedChance {
		t := property.NewTenant(rng, tenantID, rent)
		p.Tenant = &t
		p.IsRented = true
	}

	age := rng.Intn(prof.maxAge)
	p.YearBuilt = year - age
	cond := 100 - float64(age)*prof.ageWear + rng.Float64()*prof.conditionLuck
	p.Condition = math.Min(100, math.Max(prof.minCondition, cond))

	p.Name = prof.names[rng.Intn(len(prof.names))]
	p.ConditionDecayRate = prof.decayMin + rng.Float64()*prof.decaySpread
	p.AppreciationRate = property.BaseAppreciationRate(rng, loc, typ)
	p.MarketTrend = property.RandomTrend(rng)
	p.MarketEntryMonth = absMonth
	p.MarketLifetime = 1 + rng.Intn(maxLifetime)
	return p
}

// generateInitialListings creates the opening market: prop_0..prop_19, all entered at month 0.
func generateInitialListings(rng *rand.Rand, year int) []property.Property {
	out := make([]property.Property, 0, InitialListingCount)
	for i := 0; i < InitialListingCount; i++ {
		out = append(out, generateListing(rng, initialProfile,
			fmt.Sprintf("prop_%d", i), fmt.Sprintf("tenant_initial_%d", i), year, 0))
	}
	return out
}

// shouldRefreshMarketLocked decides whether this month runs a churn pass.
// A refresh happens when 1-3 months (drawn fresh every check) have passed since the last one.
func (e *Engine) shouldRefreshMarketLocked(absMonth int) bool {
	since := absMonth - e.state.LastMarketUpdate
	if since >= 1+e.rng.Intn(3) {
		e.state.LastMarketUpdate = absMonth
		return true
	}
	return false
}

// refreshMarketLocked drops expired listings and adds 2-5 fresh ones.
func (e *Engine) refreshMarketLocked(absMonth int) (removed, added []property.Property) {
	kept := e.state.AvailableProperties[:0:0]
	for _, p := range e.state.AvailableProperties {
		if absMonth-p.MarketEntryMonth >= p.MarketLifetime {
			removed = append(removed, p)
			continue
		}
		kept = append(kept, p)
	}

	n := minNewListings + e.rng.Intn(maxNewListings-minNewListings+1)
	for i := 0; i < n; i++ {
		p := generateListing(e.rng, churnProfile,
			"prop_new_"+uuid.NewString(), "tenant_new_"+uuid.NewString(), e.state.GameTime.Year, absMonth)
		kept = append(kept, p)
		added = append(added, p)
	}
	e.state.AvailableProperties = kept

	e.logger.Info("Market refreshed",
		"month", absMonth, "removed", len(removed), "added", len(added), "listings", len(kept))
	e.metrics.RecordMarketRefresh(len(added), len(removed))

	if len(removed) > 0 {
		e.emit(events.PropertiesRemoved{Properties: property.CloneAll(removed), Count: len(removed)})
	}
	if len(added) > 0 {
		e.emit(events.NewPropertiesAdded{Properties: property.CloneAll(added), Count: len(added)})
	}
	return removed, added
}
