package property

import "math/rand"

// Districts is the fixed set of Berlin districts a listing can be in.
var Districts = []Location{
	{District: "Mitte", Desirability: 90, PriceMultiplier: 1.5},
	{District: "Prenzlauer Berg", Desirability: 85, PriceMultiplier: 1.3},
	{District: "Kreuzberg", Desirability: 80, PriceMultiplier: 1.2},
	{District: "Charlottenburg", Desirability: 75, PriceMultiplier: 1.1},
	{District: "Wedding", Desirability: 60, PriceMultiplier: 0.8},
	{District: "Neukölln", Desirability: 65, PriceMultiplier: 0.9},
}

// InitialNames are used for the starting market.
var InitialNames = []string{
	"Gemütliche 2-Zimmer Wohnung",
	"Moderne 3-Zimmer Wohnung",
	"Luxus Penthouse",
	"Einfamilienhaus mit Garten",
	"Bürogebäude",
	"Ladenlokal",
	"Altbau Wohnung",
	"Neubau Apartment",
}

// ListingNames are used for listings injected by market churn.
var ListingNames = append(append([]string{}, InitialNames...),
	"Loft im Industriegebiet",
	"Villa am Stadtrand",
	"Studentenwohnung",
	"Maisonette-Wohnung",
	"Dachgeschoss-Apartment",
	"Erdgeschoss mit Terrasse",
	"Renovierungsbedürftige Wohnung",
	"Luxus-Loft",
	"Familienhaus",
	"Gewerbeimmobilie",
	"Büroetage",
	"Laden mit Wohnung",
)

var (
	tenantFirstNames = []string{"Max", "Anna", "Peter", "Lisa", "Tom", "Sarah", "Mike", "Julia"}
	tenantLastNames  = []string{"Müller", "Schmidt", "Weber", "Wagner", "Becker", "Schulz", "Hoffmann", "Koch"}
)

// BasePrice returns the unadjusted price for a property type.
func BasePrice(t Type) float64 {
	switch t {
	case TypeHouse:
		return 400000
	case TypeCommercial:
		return 600000
	case TypeOffice:
		return 800000
	default:
		return 200000
	}
}

// BaseAppreciationRate derives the yearly appreciation (%) from location tier and type,
// jittered by ±1 and floored at 0.5.
func BaseAppreciationRate(rng *rand.Rand, loc Location, t Type) float64 {
	rate := 2.0

	switch {
	case loc.Desirability > 80:
		rate += 1.5
	case loc.Desirability > 60:
		rate += 0.5
	case loc.Desirability < 40:
		rate -= 1.0
	}

	switch t {
	case TypeCommercial:
		rate += 0.5
	case TypeOffice:
		rate += 1.0
	case TypeApartment:
		rate += 0.2
	}

	rate += (rng.Float64() - 0.5) * 2
	if rate < 0.5 {
		return 0.5
	}
	return rate
}

// RandomTrend draws a trend: 10% declining, 30% stable, 40% growing, 20% booming.
func RandomTrend(rng *rand.Rand) MarketTrend {
	r := rng.Float64()
	switch {
	case r < 0.1:
		return TrendDeclining
	case r < 0.4:
		return TrendStable
	case r < 0.8:
		return TrendGrowing
	default:
		return TrendBooming
	}
}

// RandomDistrict picks a district uniformly.
func RandomDistrict(rng *rand.Rand) Location {
	return Districts[rng.Intn(len(Districts))]
}

// RandomType picks a property type uniformly.
func RandomType(rng *rand.Rand) Type {
	return AllTypes[rng.Intn(len(AllTypes))]
}

// RandomTenantName builds a German first/last name pair.
func RandomTenantName(rng *rand.Rand) string {
	return tenantFirstNames[rng.Intn(len(tenantFirstNames))] + " " + tenantLastNames[rng.Intn(len(tenantLastNames))]
}

// NewTenant synthesizes a tenant sized to the given rent.
// Reliability is 60-100, income 2-4x rent and budget 90-110% of rent.
func NewTenant(rng *rand.Rand, id string, rent int64) Tenant {
	r := float64(rent)
	return Tenant{
		ID:            id,
		Name:          RandomTenantName(rng),
		Reliability:   60 + rng.Float64()*40,
		MonthlyIncome: r * (2 + rng.Float64()*2),
		RentBudget:    r * (0.9 + rng.Float64()*0.2),
	}
}
