// Package game defines the authoritative game state and its calendar.
package game

import (
	"fmt"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/property"
)

// SchemaRevision is the current revision of the persisted state layout.
// Older saves are brought forward by the savegame migration chain.
const SchemaRevision = 2

const (
	StartMoney         int64 = 500000
	StartCreditScore         = 750
	StartMonthlyIncome int64 = 3500
)

// Player holds the cash, portfolio and debt of the single player.
type Player struct {
	Money         int64               `json:"money"`
	Properties    []property.Property `json:"properties"`
	CreditScore   int                 `json:"creditScore"`
	MonthlyIncome int64               `json:"monthlyIncome"` // informational salary figure
	Loans         []finance.Loan      `json:"loans"`
}

// Clone deep-copies the player.
func (p Player) Clone() Player {
	p.Properties = property.CloneAll(p.Properties)
	p.Loans = append([]finance.Loan(nil), p.Loans...)
	if p.Loans == nil {
		p.Loans = []finance.Loan{}
	}
	return p
}

// OwnedIndex returns the portfolio position of id, or -1.
func (p *Player) OwnedIndex(id string) int {
	return property.IndexOf(p.Properties, id)
}

// MonthlyDebtService sums the payments of all outstanding loans.
func (p *Player) MonthlyDebtService() int64 {
	var total int64
	for _, l := range p.Loans {
		total += l.MonthlyPayment
	}
	return total
}

// GameState is everything a save slot captures.
type GameState struct {
	Player              Player              `json:"player"`
	AvailableProperties []property.Property `json:"availableProperties"`
	Banks               []finance.Bank      `json:"banks"`
	GameTime            GameTime            `json:"gameTime"`
	TimeSettings        TimeSettings        `json:"timeSettings"`
	LastMarketUpdate    int                 `json:"lastMarketUpdate"`
	SchemaRevision      int                 `json:"schemaRevision"`
}

// New returns a fresh state with start capital, the default banks and an empty market.
func New() *GameState {
	return &GameState{
		Player: Player{
			Money:         StartMoney,
			Properties:    []property.Property{},
			CreditScore:   StartCreditScore,
			MonthlyIncome: StartMonthlyIncome,
			Loans:         []finance.Loan{},
		},
		AvailableProperties: []property.Property{},
		Banks:               finance.DefaultBanks(),
		GameTime:            StartTime(),
		TimeSettings:        DefaultTimeSettings(),
		SchemaRevision:      SchemaRevision,
	}
}

// Clone returns a deep copy; nothing in the copy aliases the receiver.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Player = s.Player.Clone()
	c.AvailableProperties = property.CloneAll(s.AvailableProperties)
	c.Banks = append([]finance.Bank(nil), s.Banks...)
	return &c
}

// AbsoluteMonth is the monotonic month index used for market timing.
func (s *GameState) AbsoluteMonth() int {
	return s.GameTime.AbsoluteMonth()
}

// ListedIndex returns the market position of id, or -1.
func (s *GameState) ListedIndex(id string) int {
	return property.IndexOf(s.AvailableProperties, id)
}

// Validate checks the membership and range invariants. It is used by tests and after loads.
func (s *GameState) Validate() error {
	seen := make(map[string]string, len(s.AvailableProperties)+len(s.Player.Properties))
	check := func(where string, props []property.Property) error {
		for _, p := range props {
			if prev, dup := seen[p.ID]; dup {
				return fmt.Errorf("property %s is in both %s and %s", p.ID, prev, where)
			}
			seen[p.ID] = where
			if p.Condition < 0 || p.Condition > 100 {
				return fmt.Errorf("property %s condition %.2f out of range", p.ID, p.Condition)
			}
			if p.Price < 0 {
				return fmt.Errorf("property %s has negative price", p.ID)
			}
		}
		return nil
	}
	if err := check("market", s.AvailableProperties); err != nil {
		return err
	}
	return check("portfolio", s.Player.Properties)
}
