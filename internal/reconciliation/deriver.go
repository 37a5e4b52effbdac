package reconciliation

import "github.com/shopspring/decimal"

// Status is the derived state of an installment.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// ScheduledItem is the deriver's view of an installment.
type ScheduledItem struct {
	InstallmentID int64
	Scheduled     decimal.Decimal
}

// LedgerEntry is the deriver's view of one allocation row.
type LedgerEntry struct {
	InstallmentID int64
	Amount        decimal.Decimal
}

// Derived is the computed per-installment state.
type Derived struct {
	Paid      decimal.Decimal
	Remaining decimal.Decimal
	Status    Status
}

// DeriveOne computes paid-to-date state for a single installment. Remaining
// is scheduled minus paid without clamping, so the function stays total over
// arbitrary inputs even though the ledger rejects overpayment on write.
func DeriveOne(scheduled, paid decimal.Decimal) Derived {
	status := StatusPending
	switch {
	case paid.IsZero() || paid.IsNegative():
		status = StatusPending
	case paid.LessThan(scheduled):
		status = StatusPartial
	default:
		status = StatusPaid
	}
	return Derived{
		Paid:      paid,
		Remaining: scheduled.Sub(paid),
		Status:    status,
	}
}

// Derive folds the allocation ledger over a set of installments. It is pure:
// no I/O, no hidden state, identical inputs produce identical outputs.
// Allocations pointing at installments outside items are ignored.
func Derive(items []ScheduledItem, ledger []LedgerEntry) map[int64]Derived {
	paidByInstallment := make(map[int64]decimal.Decimal, len(items))
	for _, item := range items {
		paidByInstallment[item.InstallmentID] = decimal.Zero
	}
	for _, entry := range ledger {
		if current, ok := paidByInstallment[entry.InstallmentID]; ok {
			paidByInstallment[entry.InstallmentID] = current.Add(entry.Amount)
		}
	}

	out := make(map[int64]Derived, len(items))
	for _, item := range items {
		out[item.InstallmentID] = DeriveOne(item.Scheduled, paidByInstallment[item.InstallmentID])
	}
	return out
}
