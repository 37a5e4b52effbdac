package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FinalTotal applies the interest rate to a subtotal, quantized to cents.
func FinalTotal(subtotal, interestPct decimal.Decimal) decimal.Decimal {
	factor := decimal.New(1, 0).Add(interestPct.Div(hundred))
	return subtotal.Mul(factor).Round(2)
}

// BuildSchedule splits total into term monthly installments due on the same
// day of each following month. Amounts are quantized to cents; the last
// installment absorbs the rounding remainder so the schedule sums exactly to
// total.
func BuildSchedule(total decimal.Decimal, term int, saleDate time.Time) []ScheduledInstallment {
	if term <= 0 {
		return nil
	}
	per := total.Div(decimal.NewFromInt(int64(term))).Round(2)
	schedule := make([]ScheduledInstallment, 0, term)
	allocated := decimal.Zero
	for i := 1; i <= term; i++ {
		amount := per
		if i == term {
			amount = total.Sub(allocated)
		}
		allocated = allocated.Add(amount)
		schedule = append(schedule, ScheduledInstallment{
			Seq:     i,
			DueDate: saleDate.AddDate(0, i, 0),
			Amount:  amount,
		})
	}
	return schedule
}
