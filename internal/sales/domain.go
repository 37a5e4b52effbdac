package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind distinguishes cash sales from credit sales.
type Kind string

const (
	KindCash   Kind = "cash"
	KindCredit Kind = "credit"
)

// ValidTerms lists the credit terms (in months) the business offers.
var ValidTerms = []int{3, 6, 9, 12, 24, 36, 48}

// Sale is a recorded sale. For credit sales Total already includes interest
// and equals the sum of the generated installment schedule.
type Sale struct {
	ID          int64           `json:"id"`
	ClientName  string          `json:"client_name"`
	Kind        Kind            `json:"kind"`
	SaleDate    time.Time       `json:"-"`
	TermMonths  int             `json:"term_months"`
	InterestPct decimal.Decimal `json:"interest_pct"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CreateSaleInput carries the fields needed to record a sale. Subtotal is the
// pre-interest amount; the service derives the final total.
type CreateSaleInput struct {
	ClientName  string
	Kind        Kind
	SaleDate    time.Time
	TermMonths  int
	InterestPct decimal.Decimal
	Subtotal    decimal.Decimal
}

// ScheduledInstallment is one row of a generated repayment schedule.
type ScheduledInstallment struct {
	Seq     int
	DueDate time.Time
	Amount  decimal.Decimal
}

// ListSalesRequest filters the sale listing.
type ListSalesRequest struct {
	ClientQuery string
	Kind        Kind
	Page        int
	PageSize    int
}

// ValidTerm reports whether months is an offered credit term.
func ValidTerm(months int) bool {
	for _, t := range ValidTerms {
		if t == months {
			return true
		}
	}
	return false
}
