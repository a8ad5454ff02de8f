package engine

import (
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/domain/property"
)

// Queries return deep copies; nothing handed out aliases engine state.

func (e *Engine) State() *game.GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone()
}

func (e *Engine) Player() game.Player {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Player.Clone()
}

func (e *Engine) AvailableProperties() []property.Property {
	e.mu.Lock()
	defer e.mu.Unlock()
	return property.CloneAll(e.state.AvailableProperties)
}

func (e *Engine) Banks() []finance.Bank {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]finance.Bank(nil), e.state.Banks...)
}

func (e *Engine) GameTime() game.GameTime {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.GameTime
}

func (e *Engine) TimeSettings() game.TimeSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.TimeSettings
}

// CurrentMonth is the calendar month, 1 to 12.
func (e *Engine) CurrentMonth() int {
	return e.GameTime().Month
}

// AbsoluteMonth is the month index used for market timing: month + (year-2024)*12.
func (e *Engine) AbsoluteMonth() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.AbsoluteMonth()
}

// DaysUntilNextIncome counts the days left until the next settlement.
func (e *Engine) DaysUntilNextIncome() int {
	return e.GameTime().DaysUntilNextIncome()
}

// FormattedDate renders the calendar as "D. Monatsname YYYY".
func (e *Engine) FormattedDate() string {
	return e.GameTime().Format()
}

// listingIndex adapts listings to fuzzy.Source, matching on name, district and type.
type listingIndex []property.Property

func (l listingIndex) String(i int) string {
	p := l[i]
	return strings.Join([]string{p.Name, p.Location.District, string(p.Type)}, " ")
}

func (l listingIndex) Len() int { return len(l) }

// SearchListings fuzzy-matches query against the market, best match first.
// An empty query returns every listing in market order.
func (e *Engine) SearchListings(query string) []property.Property {
	listings := e.AvailableProperties()
	query = strings.TrimSpace(query)
	if query == "" {
		return listings
	}
	matches := fuzzy.FindFrom(query, listingIndex(listings))
	out := make([]property.Property, 0, len(matches))
	for _, m := range matches {
		out = append(out, listings[m.Index])
	}
	return out
}
