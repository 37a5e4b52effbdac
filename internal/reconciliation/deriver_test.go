package reconciliation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestDeriveOneStatusBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		scheduled string
		paid      string
		status    Status
		remaining string
	}{
		{"nothing paid", "100.00", "0", StatusPending, "100.00"},
		{"negative paid stays pending", "100.00", "-5", StatusPending, "105.00"},
		{"one cent short", "100.00", "99.99", StatusPartial, "0.01"},
		{"one cent paid", "100.00", "0.01", StatusPartial, "99.99"},
		{"exactly covered", "100.00", "100.00", StatusPaid, "0.00"},
		{"above scheduled", "100.00", "120.00", StatusPaid, "-20.00"},
		{"zero scheduled zero paid", "0", "0", StatusPending, "0"},
		{"zero scheduled some paid", "0", "10", StatusPaid, "-10"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveOne(d(tc.scheduled), d(tc.paid))
			assert.Equal(t, tc.status, got.Status)
			assert.True(t, got.Remaining.Equal(d(tc.remaining)), "remaining %s want %s", got.Remaining, tc.remaining)
			assert.True(t, got.Paid.Equal(d(tc.paid)))
		})
	}
}

func TestDeriveFoldsLedger(t *testing.T) {
	items := []ScheduledItem{
		{InstallmentID: 1, Scheduled: d("100.00")},
		{InstallmentID: 2, Scheduled: d("100.00")},
		{InstallmentID: 3, Scheduled: d("100.00")},
	}
	ledger := []LedgerEntry{
		{InstallmentID: 1, Amount: d("60.00")},
		{InstallmentID: 1, Amount: d("40.00")},
		{InstallmentID: 2, Amount: d("25.50")},
		{InstallmentID: 99, Amount: d("500.00")}, // outside the item set
	}

	out := Derive(items, ledger)
	require.Len(t, out, 3)

	assert.Equal(t, StatusPaid, out[1].Status)
	assert.True(t, out[1].Paid.Equal(d("100.00")))
	assert.Equal(t, StatusPartial, out[2].Status)
	assert.True(t, out[2].Remaining.Equal(d("74.50")))
	assert.Equal(t, StatusPending, out[3].Status)
	assert.True(t, out[3].Paid.IsZero())
}

// Paid plus remaining always reconstructs scheduled, whatever the ledger holds.
func TestDeriveConservation(t *testing.T) {
	items := []ScheduledItem{
		{InstallmentID: 1, Scheduled: d("333.33")},
		{InstallmentID: 2, Scheduled: d("333.33")},
		{InstallmentID: 3, Scheduled: d("333.34")},
	}
	ledger := []LedgerEntry{
		{InstallmentID: 1, Amount: d("333.33")},
		{InstallmentID: 2, Amount: d("0.01")},
		{InstallmentID: 3, Amount: d("400.00")},
	}

	out := Derive(items, ledger)
	for _, item := range items {
		got := out[item.InstallmentID]
		sum := got.Paid.Add(got.Remaining)
		assert.True(t, sum.Equal(item.Scheduled), "installment %d: %s != %s", item.InstallmentID, sum, item.Scheduled)
	}
}

func TestDeriveIsPure(t *testing.T) {
	items := []ScheduledItem{{InstallmentID: 1, Scheduled: d("50")}}
	ledger := []LedgerEntry{{InstallmentID: 1, Amount: d("20")}}

	first := Derive(items, ledger)
	second := Derive(items, ledger)
	assert.Equal(t, first, second)
}
