package property

import "math"

// Renovation ids.
const (
	RenovationBasicMaintenance = "basic_maintenance"
	RenovationModernization    = "modernization"
	RenovationLuxuryUpgrade    = "luxury_upgrade"
	RenovationEnergyEfficiency = "energy_efficiency"
)

// Renovation is an upgrade option. It is computed on demand and never stored.
type Renovation struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Cost                 int64   `json:"cost"`
	ConditionImprovement float64 `json:"conditionImprovement"`
	RentIncrease         float64 `json:"rentIncrease"` // percent
	Duration             int     `json:"duration"`     // days
	Description          string  `json:"description"`
}

type renovationTier struct {
	id, name, description string
	costRatio             float64
	condition, rent       float64
	duration              int
}

var renovationTiers = []renovationTier{
	{RenovationBasicMaintenance, "Grundwartung", "Kleine Reparaturen und Auffrischung", 0.025, 15, 5, 7},
	{RenovationModernization, "Modernisierung", "Neue Küche, Bad-Renovierung, moderne Ausstattung", 0.075, 30, 15, 21},
	{RenovationLuxuryUpgrade, "Luxus-Ausbau", "Hochwertige Materialien, Designer-Ausstattung", 0.175, 50, 35, 45},
	{RenovationEnergyEfficiency, "Energetische Sanierung", "Dämmung, neue Heizung, Solarpanels - reduziert Wartungskosten um 25%", 0.1, 25, 12, 30},
}

// RenovationCatalog returns the four tiers priced against originalPrice.
func RenovationCatalog(originalPrice float64) []Renovation {
	out := make([]Renovation, 0, len(renovationTiers))
	for _, t := range renovationTiers {
		out = append(out, Renovation{
			ID:                   t.id,
			Name:                 t.name,
			Cost:                 int64(math.Round(originalPrice * t.costRatio)),
			ConditionImprovement: t.condition,
			RentIncrease:         t.rent,
			Duration:             t.duration,
			Description:          t.description,
		})
	}
	return out
}

// FindRenovation looks up a tier by id in a catalog.
func FindRenovation(catalog []Renovation, id string) (Renovation, bool) {
	for _, r := range catalog {
		if r.ID == id {
			return r, true
		}
	}
	return Renovation{}, false
}

// ApplyRenovation mutates p with the effects of r, stamping month as the renovation month.
func ApplyRenovation(p *Property, r Renovation, month int) {
	p.Condition = math.Min(100, p.Condition+r.ConditionImprovement)
	p.MonthlyRent = int64(math.Round(float64(p.MonthlyRent) * (1 + r.RentIncrease/100)))
	p.LastRenovationMonth = month

	if r.ID == RenovationEnergyEfficiency {
		p.MaintenanceCost = int64(math.Round(float64(p.MaintenanceCost) * 0.75))
		p.ConditionDecayRate *= 0.8
	}
}
