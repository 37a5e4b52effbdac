package installments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled repayment obligation of a credit sale.
// Sequence numbers are 1-based and contiguous within a sale.
type Installment struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	Seq       int             `json:"seq"`
	DueDate   time.Time       `json:"-"`
	Scheduled decimal.Decimal `json:"scheduled"`
}

// ListRequest filters the installment listing. From/To bound the due date
// inclusively; Query is matched against the sale id, sequence number and due
// date the way the reference screen searched.
type ListRequest struct {
	SaleID   int64
	From     time.Time
	To       time.Time
	Query    string
	Page     int
	PageSize int
}

// UpdateInput carries the administrative edit of an installment.
type UpdateInput struct {
	DueDate   time.Time
	Scheduled decimal.Decimal
}
