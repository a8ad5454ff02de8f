package engine

import (
	"errors"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/property"
	"github.com/MRamiBalles/immolife/internal/events"
)

// Validation failures. Every transaction that returns one of these left the state untouched.
var (
	ErrPropertyNotFound  = errors.New("property not found on the market")
	ErrPropertyNotOwned  = errors.New("property not owned")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyRented     = errors.New("property already rented")
	ErrBankNotFound      = errors.New("bank not found")
	ErrInvalidAmount     = errors.New("loan amount must be positive")
	ErrLoanLimitExceeded = errors.New("loan amount exceeds bank maximum")
	ErrCreditScoreTooLow = errors.New("credit score below bank minimum")
	ErrUnknownRenovation = errors.New("unknown renovation")
	ErrInvalidSpeed      = errors.New("invalid time speed")
)

// SellRatio is the share of market value a sale returns.
const SellRatio = 0.9

// transact wraps a transaction with metrics and failure logging.
func (e *Engine) transact(name, subject string, fn func() error) error {
	err := e.update(fn)
	e.metrics.RecordTransaction(err)
	if err != nil {
		e.logger.Debug("Transaction rejected", "op", name, "subject", subject, "reason", err)
	}
	return err
}

// BuyProperty moves a listing into the portfolio and debits its rounded price.
// Cash must cover the unrounded market value.
func (e *Engine) BuyProperty(id string) error {
	return e.transact("buy", id, func() error {
		s := e.state
		i := s.ListedIndex(id)
		if i < 0 {
			return ErrPropertyNotFound
		}
		p := s.AvailableProperties[i]
		if float64(s.Player.Money) < p.Price {
			return ErrInsufficientFunds
		}
		cost := int64(math.Round(p.Price))

		s.Player.Money -= cost
		s.AvailableProperties = append(s.AvailableProperties[:i:i], s.AvailableProperties[i+1:]...)
		s.Player.Properties = append(s.Player.Properties, p)

		e.logger.Event(string(events.EventTypePropertyBought), p.ID, p.Name+" for "+humanize.Comma(cost)+" €")
		e.emit(events.PropertyBought{Property: p.Clone()})
		e.autosave.schedule()
		return nil
	})
}

// SellProperty credits 90% of market value and puts the property back on the market at that price.
func (e *Engine) SellProperty(id string) error {
	return e.transact("sell", id, func() error {
		s := e.state
		i := s.Player.OwnedIndex(id)
		if i < 0 {
			return ErrPropertyNotOwned
		}
		p := s.Player.Properties[i]
		proceeds := int64(math.Round(p.Price * SellRatio))

		s.Player.Money += proceeds
		s.Player.Properties = append(s.Player.Properties[:i:i], s.Player.Properties[i+1:]...)

		p.Price = float64(proceeds)
		p.MarketEntryMonth = s.AbsoluteMonth()
		s.AvailableProperties = append(s.AvailableProperties, p)

		e.logger.Event(string(events.EventTypePropertySold), p.ID, p.Name+" for "+humanize.Comma(proceeds)+" €")
		e.emit(events.PropertySold{Property: p.Clone(), SalePrice: proceeds})
		e.autosave.schedule()
		return nil
	})
}

// FindTenant proposes a tenant for an owned, vacant property. The tenant is not attached.
func (e *Engine) FindTenant(id string) (property.Tenant, error) {
	var tenant property.Tenant
	err := e.transact("findTenant", id, func() error {
		p, err := e.vacantOwnedLocked(id)
		if err != nil {
			return err
		}
		tenant = property.NewTenant(e.rng, "tenant_"+uuid.NewString(), p.MonthlyRent)
		return nil
	})
	return tenant, err
}

// RentToTenant attaches tenant to an owned, vacant property.
func (e *Engine) RentToTenant(id string, tenant property.Tenant) error {
	return e.transact("rent", id, func() error {
		p, err := e.vacantOwnedLocked(id)
		if err != nil {
			return err
		}
		t := tenant
		p.Tenant = &t
		p.IsRented = true

		e.logger.Event(string(events.EventTypePropertyRented), p.ID, "rented to "+tenant.Name)
		e.emit(events.PropertyRented{Property: p.Clone(), Tenant: tenant})
		return nil
	})
}

func (e *Engine) vacantOwnedLocked(id string) (*property.Property, error) {
	i := e.state.Player.OwnedIndex(id)
	if i < 0 {
		return nil, ErrPropertyNotOwned
	}
	p := &e.state.Player.Properties[i]
	if p.IsRented {
		return nil, ErrAlreadyRented
	}
	return p, nil
}

// ApplyForLoan takes out a 240-month annuity loan and credits the proceeds immediately.
// propertyID is recorded on the loan but not checked.
func (e *Engine) ApplyForLoan(bankID string, amount int64, propertyID string) (finance.Loan, error) {
	var loan finance.Loan
	err := e.transact("loan", bankID, func() error {
		s := e.state
		bank, ok := finance.FindBank(s.Banks, bankID)
		if !ok {
			return ErrBankNotFound
		}
		if amount <= 0 {
			return ErrInvalidAmount
		}
		if amount > bank.MaxLoanAmount {
			return ErrLoanLimitExceeded
		}
		if s.Player.CreditScore < bank.MinCreditScore {
			return ErrCreditScoreTooLow
		}

		loan = finance.Loan{
			ID:              "loan_" + uuid.NewString(),
			BankID:          bank.ID,
			Amount:          amount,
			InterestRate:    bank.InterestRate,
			MonthlyPayment:  finance.MonthlyPayment(amount, bank.InterestRate, finance.LoanTermMonths),
			RemainingMonths: finance.LoanTermMonths,
			PropertyID:      propertyID,
		}
		s.Player.Loans = append(s.Player.Loans, loan)
		s.Player.Money += amount

		e.logger.Event(string(events.EventTypeLoanApproved), bank.ID,
			humanize.Comma(amount)+" € at "+humanize.FtoaWithDigits(bank.InterestRate, 2)+"%, "+
				humanize.Comma(loan.MonthlyPayment)+" €/month")
		e.emit(events.LoanApproved{Loan: loan})
		return nil
	})
	return loan, err
}

// GetRenovationOptions returns the renovation catalog for an owned property.
func (e *Engine) GetRenovationOptions(id string) ([]property.Renovation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.state.Player.OwnedIndex(id)
	if i < 0 {
		return nil, ErrPropertyNotOwned
	}
	return property.RenovationCatalog(e.state.Player.Properties[i].OriginalPrice), nil
}

// RenovateProperty pays for and applies a renovation tier.
// The rent increase holds until the next monthly rent re-basing.
func (e *Engine) RenovateProperty(id, renovationID string) error {
	return e.transact("renovate", id, func() error {
		s := e.state
		i := s.Player.OwnedIndex(id)
		if i < 0 {
			return ErrPropertyNotOwned
		}
		p := &s.Player.Properties[i]
		r, ok := property.FindRenovation(property.RenovationCatalog(p.OriginalPrice), renovationID)
		if !ok {
			return ErrUnknownRenovation
		}
		if s.Player.Money < r.Cost {
			return ErrInsufficientFunds
		}

		s.Player.Money -= r.Cost
		property.ApplyRenovation(p, r, s.AbsoluteMonth())

		e.logger.Event(string(events.EventTypePropertyRenovated), p.ID, r.Name+" for "+humanize.Comma(r.Cost)+" €")
		e.emit(events.PropertyRenovated{Property: p.Clone(), Renovation: r})
		e.autosave.schedule()
		return nil
	})
}
