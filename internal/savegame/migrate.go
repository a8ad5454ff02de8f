package savegame

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/domain/property"
	"github.com/MRamiBalles/immolife/internal/domain/rules"
)

// legacyProperty decodes a property whose newer fields may be absent.
// The pointer fields shadow the embedded ones, so nil means "not in the save".
type legacyProperty struct {
	property.Property

	MarketEntryMonth    *int                  `json:"marketEntryMonth"`
	MarketLifetime      *int                  `json:"marketLifetime"`
	OriginalPrice       *float64              `json:"originalPrice"`
	LastRenovationMonth *int                  `json:"lastRenovationMonth"`
	YearBuilt           *int                  `json:"yearBuilt"`
	ConditionDecayRate  *float64              `json:"conditionDecayRate"`
	AppreciationRate    *float64              `json:"appreciationRate"`
	MarketTrend         *property.MarketTrend `json:"marketTrend"`
}

// Older saves debited the unrounded price on purchase, so money may be fractional.
type legacyPlayer struct {
	game.Player
	Money      *float64         `json:"money"`
	Properties []legacyProperty `json:"properties"`
}

type legacyState struct {
	game.GameState
	Player              legacyPlayer     `json:"player"`
	AvailableProperties []legacyProperty `json:"availableProperties"`
	LastMarketUpdate    *int             `json:"lastMarketUpdate"`
	SchemaRevision      int              `json:"schemaRevision"`
}

func (s *legacyState) eachProperty(fn func(p *legacyProperty)) {
	for i := range s.AvailableProperties {
		fn(&s.AvailableProperties[i])
	}
	for i := range s.Player.Properties {
		fn(&s.Player.Properties[i])
	}
}

// migration moves a decoded state from revision from to from+1.
// up must only fill fields that are absent.
type migration struct {
	from int
	name string
	up   func(s *legacyState, rng *rand.Rand)
}

// chain is ordered and ends at game.SchemaRevision.
var chain = []migration{
	{from: 0, name: "market dynamics", up: migrateMarketDynamics},
	{from: 1, name: "valuation", up: migrateValuation},
}

func migrateMarketDynamics(s *legacyState, rng *rand.Rand) {
	s.eachProperty(func(p *legacyProperty) {
		if p.MarketEntryMonth == nil {
			p.MarketEntryMonth = intPtr(0)
		}
		if p.MarketLifetime == nil {
			p.MarketLifetime = intPtr(1 + rng.Intn(6))
		}
	})
	if s.LastMarketUpdate == nil {
		s.LastMarketUpdate = intPtr(0)
	}
}

func migrateValuation(s *legacyState, rng *rand.Rand) {
	s.eachProperty(func(p *legacyProperty) {
		if p.OriginalPrice == nil {
			p.OriginalPrice = floatPtr(p.Price)
		}
		if p.LastRenovationMonth == nil {
			p.LastRenovationMonth = intPtr(0)
		}
		if p.YearBuilt == nil {
			p.YearBuilt = intPtr(game.EpochYear - rng.Intn(50))
		}
		if p.ConditionDecayRate == nil {
			p.ConditionDecayRate = floatPtr(0.08 + rng.Float64()*0.12)
		}
		if p.AppreciationRate == nil {
			p.AppreciationRate = floatPtr(property.BaseAppreciationRate(rng, p.Location, p.Type))
		}
		if p.MarketTrend == nil {
			t := property.RandomTrend(rng)
			p.MarketTrend = &t
		}
	})
}

// migrate runs every step from the state's revision up to the current one and
// returns the resulting GameState. Revisions newer than this build are rejected.
func migrate(s *legacyState, rng *rand.Rand) (*game.GameState, error) {
	if s.SchemaRevision > game.SchemaRevision {
		return nil, fmt.Errorf("%w: schema revision %d is newer than %d", ErrVersionMismatch, s.SchemaRevision, game.SchemaRevision)
	}
	s.repairRanges()
	for _, m := range chain {
		if m.from < s.SchemaRevision {
			continue
		}
		m.up(s, rng)
		s.SchemaRevision = m.from + 1
	}
	// Steps only fill absent fields, so replaying them repairs a current-revision
	// save that lost keys.
	for _, m := range chain {
		m.up(s, rng)
	}
	return s.finish(), nil
}

// repairRanges pulls values older generators could push out of range back into it.
// Initial listings used to start with a condition of up to 120.
func (s *legacyState) repairRanges() {
	s.eachProperty(func(p *legacyProperty) {
		p.Condition = rules.ClampCondition(p.Condition)
		if p.Price < 0 {
			p.Price = 0
		}
	})
}

func (s *legacyState) finish() *game.GameState {
	out := s.GameState
	out.Player = s.Player.Player
	if s.Player.Money != nil {
		out.Player.Money = int64(math.Round(*s.Player.Money))
	}
	out.Player.Properties = finishAll(s.Player.Properties)
	out.AvailableProperties = finishAll(s.AvailableProperties)
	out.LastMarketUpdate = *s.LastMarketUpdate
	out.SchemaRevision = game.SchemaRevision

	if out.Player.Loans == nil {
		out.Player.Loans = []finance.Loan{}
	}
	if len(out.Banks) == 0 {
		out.Banks = game.New().Banks
	}
	return &out
}

func finishAll(in []legacyProperty) []property.Property {
	out := make([]property.Property, len(in))
	for i, lp := range in {
		p := lp.Property
		p.MarketEntryMonth = *lp.MarketEntryMonth
		p.MarketLifetime = *lp.MarketLifetime
		p.OriginalPrice = *lp.OriginalPrice
		p.LastRenovationMonth = *lp.LastRenovationMonth
		p.YearBuilt = *lp.YearBuilt
		p.ConditionDecayRate = *lp.ConditionDecayRate
		p.AppreciationRate = *lp.AppreciationRate
		p.MarketTrend = *lp.MarketTrend
		out[i] = p
	}
	return out
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
