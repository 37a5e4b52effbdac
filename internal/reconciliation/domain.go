package reconciliation

import (
	"time"

	"github.com/shopspring/decimal"
)

// Row is one reporting-ready line of the reconciliation view. DueDate is kept
// as an ISO yyyy-mm-dd string, which compares lexicographically in date order.
type Row struct {
	InstallmentID int64           `json:"installment_id"`
	SaleID        int64           `json:"sale_id"`
	Seq           int             `json:"seq"`
	DueDate       string          `json:"due_date"`
	Scheduled     decimal.Decimal `json:"scheduled"`
	Paid          decimal.Decimal `json:"paid"`
	Remaining     decimal.Decimal `json:"remaining"`
	Status        Status          `json:"status"`
	ClientName    string          `json:"client_name"`
	SaleKind      string          `json:"sale_kind"`
}

// Totals aggregates the filtered view.
type Totals struct {
	Rows         int             `json:"rows"`
	Pending      int             `json:"pending"`
	Partial      int             `json:"partial"`
	Paid         int             `json:"paid"`
	ScheduledSum decimal.Decimal `json:"scheduled_sum"`
	PaidSum      decimal.Decimal `json:"paid_sum"`
	RemainingSum decimal.Decimal `json:"remaining_sum"`
}

// Filter narrows the view. Status accepts pending, partial, paid, all or
// empty. Query matches client name, sale id, installment id and status.
type Filter struct {
	Query    string
	Status   Status
	From     time.Time
	To       time.Time
	SaleID   int64
	Page     int
	PageSize int
}

// View is the assembled projection: filtered rows, their totals, pagination.
type View struct {
	Count      int    `json:"count"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
	TotalPages int    `json:"total_pages"`
	Results    []Row  `json:"results"`
	Totals     Totals `json:"totals"`
}

// SourceRow is the raw joined row the repository produces before derivation.
type SourceRow struct {
	InstallmentID int64
	SaleID        int64
	Seq           int
	DueDate       time.Time
	Scheduled     decimal.Decimal
	Paid          decimal.Decimal
	ClientName    string
	SaleKind      string
}
