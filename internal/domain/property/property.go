// Package property defines the real-estate entities traded on the market.
// A Property is either listed on the market or owned by the player, never both.
package property

// Type is the category of a property.
type Type string

const (
	TypeApartment  Type = "apartment"
	TypeHouse      Type = "house"
	TypeCommercial Type = "commercial"
	TypeOffice     Type = "office"
)

// AllTypes lists every property type in generation order.
var AllTypes = []Type{TypeApartment, TypeHouse, TypeCommercial, TypeOffice}

// MarketTrend drives how strongly a property appreciates.
type MarketTrend string

const (
	TrendDeclining MarketTrend = "declining"
	TrendStable    MarketTrend = "stable"
	TrendGrowing   MarketTrend = "growing"
	TrendBooming   MarketTrend = "booming"
)

// Location is a district with its desirability (0-100) and price multiplier.
type Location struct {
	District        string  `json:"district"`
	Desirability    int     `json:"desirability"`
	PriceMultiplier float64 `json:"priceMultiplier"`
}

// Tenant is embedded in the property it rents.
type Tenant struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Reliability   float64 `json:"reliability"`
	MonthlyIncome float64 `json:"monthlyIncome"`
	RentBudget    float64 `json:"rentBudget"`
}

// Property is a single piece of real estate.
type Property struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            Type     `json:"type"`
	Price           float64  `json:"price"`         // current market value, appreciates monthly
	OriginalPrice   float64  `json:"originalPrice"` // baseline for rent and renovation cost
	MonthlyRent     int64    `json:"monthlyRent"`
	Condition       float64  `json:"condition"` // 0-100
	Location        Location `json:"location"`
	Tenant          *Tenant  `json:"tenant,omitempty"`
	IsRented        bool     `json:"isRented"`
	MaintenanceCost int64    `json:"maintenanceCost"`

	// Screen position, owned by the renderer.
	X float64 `json:"x"`
	Y float64 `json:"y"`

	LastRenovationMonth int         `json:"lastRenovationMonth"`
	YearBuilt           int         `json:"yearBuilt"`
	ConditionDecayRate  float64     `json:"conditionDecayRate"` // % per month
	AppreciationRate    float64     `json:"appreciationRate"`   // % per year
	MarketTrend         MarketTrend `json:"marketTrend"`

	MarketEntryMonth int `json:"marketEntryMonth"`
	MarketLifetime   int `json:"marketLifetime"` // months on the market before removal
}

// Clone returns a deep copy so callers cannot reach engine-owned state.
func (p Property) Clone() Property {
	if p.Tenant != nil {
		t := *p.Tenant
		p.Tenant = &t
	}
	return p
}

// HasTenant reports whether the property currently produces rent.
func (p *Property) HasTenant() bool {
	return p.IsRented && p.Tenant != nil
}

// CloneAll deep-copies a slice of properties.
func CloneAll(props []Property) []Property {
	out := make([]Property, len(props))
	for i, p := range props {
		out[i] = p.Clone()
	}
	return out
}

// IndexOf returns the position of the property with the given id, or -1.
func IndexOf(props []Property, id string) int {
	for i := range props {
		if props[i].ID == id {
			return i
		}
	}
	return -1
}
