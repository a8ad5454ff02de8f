// Package finance holds the bank offers and loan amortization math.
package finance

import (
	"github.com/shopspring/decimal"
)

// LoanTermMonths is the fixed term of every loan (20 years).
const LoanTermMonths = 240

// Bank is a static loan offer.
type Bank struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	InterestRate   float64 `json:"interestRate"` // % per year
	MaxLoanAmount  int64   `json:"maxLoanAmount"`
	MinCreditScore int     `json:"minCreditScore"`
}

// Loan is an outstanding annuity loan. PropertyID is informational only.
type Loan struct {
	ID              string  `json:"id"`
	BankID          string  `json:"bankId"`
	Amount          int64   `json:"amount"`
	InterestRate    float64 `json:"interestRate"`
	MonthlyPayment  int64   `json:"monthlyPayment"`
	RemainingMonths int     `json:"remainingMonths"`
	PropertyID      string  `json:"propertyId,omitempty"`
}

// DefaultBanks returns the bank offers a new game starts with.
func DefaultBanks() []Bank {
	return []Bank{
		{ID: "sparkasse", Name: "Sparkasse", InterestRate: 3.5, MaxLoanAmount: 500000, MinCreditScore: 650},
		{ID: "deutsche-bank", Name: "Deutsche Bank", InterestRate: 3.2, MaxLoanAmount: 800000, MinCreditScore: 700},
		{ID: "volksbank", Name: "Volksbank", InterestRate: 3.8, MaxLoanAmount: 400000, MinCreditScore: 600},
	}
}

// FindBank looks a bank up by id.
func FindBank(banks []Bank, id string) (Bank, bool) {
	for _, b := range banks {
		if b.ID == id {
			return b, true
		}
	}
	return Bank{}, false
}

// MonthlyPayment computes the fixed annuity payment, rounded to whole currency units:
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1), r = annualRate / 12 / 100
//
// A zero rate degenerates to straight-line repayment.
func MonthlyPayment(principal int64, annualRate float64, months int) int64 {
	if months <= 0 || principal <= 0 {
		return 0
	}

	p := decimal.NewFromInt(principal)
	n := decimal.NewFromInt(int64(months))
	r := decimal.NewFromFloat(annualRate).Div(decimal.NewFromInt(1200))

	if r.IsZero() {
		return p.Div(n).Round(0).IntPart()
	}

	// (1+r)^n by repeated multiplication, truncated to keep the mantissa bounded.
	growth := decimal.NewFromInt(1)
	base := r.Add(decimal.NewFromInt(1))
	for i := 0; i < months; i++ {
		growth = growth.Mul(base).Round(20)
	}

	payment := p.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return payment.Round(0).IntPart()
}

// TotalRepayment is the sum of all payments over the loan term.
func (l Loan) TotalRepayment(months int) int64 {
	return l.MonthlyPayment * int64(months)
}
