package finance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthlyPaymentKnownFixture(t *testing.T) {
	// 300k at 3.5% over 20 years.
	payment := MonthlyPayment(300000, 3.5, LoanTermMonths)
	assert.InDelta(t, 1740, payment, 1)
}

func TestMonthlyPaymentAnnuityIdentity(t *testing.T) {
	const principal = 300000
	const rate = 3.5
	payment := MonthlyPayment(principal, rate, LoanTermMonths)

	// Discounting every payment back to today must give the principal back.
	r := rate / 1200
	var presentValue float64
	for m := 1; m <= LoanTermMonths; m++ {
		presentValue += float64(payment) / math.Pow(1+r, float64(m))
	}
	assert.InDelta(t, principal, presentValue, 150, "rounding to whole euros bounds the drift")

	loan := Loan{MonthlyPayment: payment}
	assert.Greater(t, loan.TotalRepayment(LoanTermMonths), int64(principal))
}

func TestMonthlyPaymentEdgeCases(t *testing.T) {
	assert.Equal(t, int64(0), MonthlyPayment(0, 3.5, LoanTermMonths))
	assert.Equal(t, int64(0), MonthlyPayment(1000, 3.5, 0))
	assert.Equal(t, int64(1000), MonthlyPayment(240000, 0, LoanTermMonths))
}

func TestFindBank(t *testing.T) {
	banks := DefaultBanks()
	b, ok := FindBank(banks, "deutsche-bank")
	assert.True(t, ok)
	assert.Equal(t, 3.2, b.InterestRate)

	_, ok = FindBank(banks, "nope")
	assert.False(t, ok)
}
