package engine

import (
	"github.com/dustin/go-humanize"

	"github.com/MRamiBalles/immolife/internal/domain/rules"
	"github.com/MRamiBalles/immolife/internal/events"
)

// Ledger is the cash flow of one monthly settlement. Income is rent net of
// maintenance; expenses are loan payments.
type Ledger struct {
	Income   int64
	Expenses int64
}

// Net is income minus expenses.
func (l Ledger) Net() int64 {
	return l.Income - l.Expenses
}

// settleMonthLocked runs the monthly pass in fixed order: property lifecycle over the
// whole market and portfolio, market churn, rent collection, loan servicing.
func (e *Engine) settleMonthLocked() {
	s := e.state
	absMonth := s.AbsoluteMonth()

	for i := range s.Player.Properties {
		rules.AgeMonth(e.rng, &s.Player.Properties[i])
	}
	for i := range s.AvailableProperties {
		rules.AgeMonth(e.rng, &s.AvailableProperties[i])
	}

	if e.shouldRefreshMarketLocked(absMonth) {
		e.refreshMarketLocked(absMonth)
	}

	var ledger Ledger
	for i := range s.Player.Properties {
		ledger.Income += rules.NetRent(&s.Player.Properties[i])
	}

	ledger.Expenses = s.Player.MonthlyDebtService()
	loans := s.Player.Loans[:0]
	for _, l := range s.Player.Loans {
		l.RemainingMonths--
		if l.RemainingMonths > 0 {
			loans = append(loans, l)
		} else {
			e.logger.Info("Loan repaid", "loan", l.ID, "bank", l.BankID)
		}
	}
	s.Player.Loans = loans

	s.Player.Money += ledger.Net()
	e.metrics.RecordSettlement()

	e.logger.Event(string(events.EventTypeMonthAdvanced), "ledger",
		"income "+humanize.Comma(ledger.Income)+" € / expenses "+humanize.Comma(ledger.Expenses)+
			" € / cash "+humanize.Comma(s.Player.Money)+" €")

	e.emit(events.MonthAdvanced{
		Month:     s.GameTime.Month,
		Year:      s.GameTime.Year,
		Income:    ledger.Income,
		Expenses:  ledger.Expenses,
		NetChange: ledger.Net(),
	})
}
