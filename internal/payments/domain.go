package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is one cash receipt from a client against a sale.
type Payment struct {
	ID        int64           `json:"id"`
	Reference string          `json:"reference"`
	SaleID    int64           `json:"sale_id"`
	PaidAt    time.Time       `json:"-"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Allocation is the amount of one payment applied to one installment.
type Allocation struct {
	PaymentID     int64           `json:"payment_id"`
	InstallmentID int64           `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// CreatePaymentInput carries the fields needed to record a payment.
type CreatePaymentInput struct {
	SaleID    int64
	Reference string
	PaidAt    time.Time
	Amount    decimal.Decimal
}

// AllocationInput is one requested allocation row.
type AllocationInput struct {
	InstallmentID int64
	Amount        decimal.Decimal
}
