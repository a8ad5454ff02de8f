// Package storage - reconstructor.go
// Rebuilds the player's financial history from the event log.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/MRamiBalles/immolife/internal/events"
)

// Reconstructor folds journal records back into a financial history.
// It is used for:
// 1. The "journal --ledger" report after a headless or server run
// 2. Auditing a save against the events that produced it
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new history reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// MonthEntry is one settled month.
type MonthEntry struct {
	Month     int   `json:"month"`
	Year      int   `json:"year"`
	Income    int64 `json:"income"`
	Expenses  int64 `json:"expenses"`
	NetChange int64 `json:"netChange"`
}

// History is the financial story since the most recent new game in the log.
type History struct {
	Months []MonthEntry `json:"months"`

	Purchases       int   `json:"purchases"`
	PurchaseSpend   int64 `json:"purchaseSpend"`
	Sales           int   `json:"sales"`
	SaleProceeds    int64 `json:"saleProceeds"`
	Rentals         int   `json:"rentals"`
	Renovations     int   `json:"renovations"`
	RenovationSpend int64 `json:"renovationSpend"`
	Loans           int   `json:"loans"`
	Borrowed        int64 `json:"borrowed"`
}

// NetOperating sums the net change of every settled month.
func (h *History) NetOperating() int64 {
	var total int64
	for _, m := range h.Months {
		total += m.NetChange
	}
	return total
}

// Rebuild replays the whole journal. A NewGameStarted record resets the history.
func (r *Reconstructor) Rebuild(ctx context.Context) (*History, error) {
	recs, err := r.eventRepo.Recent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	h := &History{}
	for _, rec := range recs {
		if rec.Type == events.EventTypeNewGameStarted {
			h = &History{}
			continue
		}
		if err := r.apply(h, rec); err != nil {
			return nil, fmt.Errorf("failed to replay event %s: %w", rec.ID, err)
		}
	}
	return h, nil
}

// apply folds one record into h. Types without a financial effect are ignored.
func (r *Reconstructor) apply(h *History, rec events.Record) error {
	switch rec.Type {
	case events.EventTypeMonthAdvanced:
		var p events.MonthAdvanced
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		h.Months = append(h.Months, MonthEntry(p))
	case events.EventTypePropertyBought:
		var p events.PropertyBought
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		h.Purchases++
		h.PurchaseSpend += int64(math.Round(p.Property.Price))
	case events.EventTypePropertySold:
		var p events.PropertySold
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		h.Sales++
		h.SaleProceeds += p.SalePrice
	case events.EventTypePropertyRented:
		h.Rentals++
	case events.EventTypePropertyRenovated:
		var p events.PropertyRenovated
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		h.Renovations++
		h.RenovationSpend += p.Renovation.Cost
	case events.EventTypeLoanApproved:
		var p events.LoanApproved
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return err
		}
		h.Loans++
		h.Borrowed += p.Loan.Amount
	}
	return nil
}
