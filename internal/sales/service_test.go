package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	sales     map[int64]*Sale
	schedules map[int64][]ScheduledInstallment
	nextID    int64

	createError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sales:     make(map[int64]*Sale),
		schedules: make(map[int64][]ScheduledInstallment),
		nextID:    1,
	}
}

func (m *mockRepository) CreateSale(ctx context.Context, input CreateSaleInput, total decimal.Decimal, schedule []ScheduledInstallment) (*Sale, error) {
	if m.createError != nil {
		return nil, m.createError
	}
	sale := &Sale{
		ID:          m.nextID,
		ClientName:  input.ClientName,
		Kind:        input.Kind,
		SaleDate:    input.SaleDate,
		TermMonths:  input.TermMonths,
		InterestPct: input.InterestPct,
		Total:       total,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.sales[sale.ID] = sale
	m.schedules[sale.ID] = schedule
	m.nextID++
	return sale, nil
}

func (m *mockRepository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	s, ok := m.sales[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *mockRepository) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	out := []Sale{}
	for _, s := range m.sales {
		if req.Kind != "" && s.Kind != req.Kind {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

// ============================================================================
// TESTS
// ============================================================================

func validCreditInput() CreateSaleInput {
	return CreateSaleInput{
		ClientName:  "Carla Medina",
		Kind:        KindCredit,
		SaleDate:    time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		TermMonths:  6,
		InterestPct: d("12.5"),
		Subtotal:    d("60000"),
	}
}

func TestCreateCreditSale(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	sale, err := svc.CreateSale(context.Background(), validCreditInput())
	require.NoError(t, err)
	assert.True(t, sale.Total.Equal(d("67500.00")), "total %s", sale.Total)

	schedule := repo.schedules[sale.ID]
	require.Len(t, schedule, 6)
	sum := decimal.Zero
	for _, inst := range schedule {
		sum = sum.Add(inst.Amount)
	}
	assert.True(t, sum.Equal(sale.Total))
}

func TestCreateCashSaleStripsTermAndInterest(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	input := validCreditInput()
	input.Kind = KindCash
	input.TermMonths = 12
	input.InterestPct = d("50")

	sale, err := svc.CreateSale(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 0, sale.TermMonths)
	assert.True(t, sale.InterestPct.IsZero())
	assert.True(t, sale.Total.Equal(d("60000.00")))
	assert.Empty(t, repo.schedules[sale.ID])
}

func TestCreateSaleValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateSaleInput)
	}{
		{"blank client", func(in *CreateSaleInput) { in.ClientName = "   " }},
		{"bad kind", func(in *CreateSaleInput) { in.Kind = "layaway" }},
		{"zero date", func(in *CreateSaleInput) { in.SaleDate = time.Time{} }},
		{"zero subtotal", func(in *CreateSaleInput) { in.Subtotal = decimal.Zero }},
		{"negative subtotal", func(in *CreateSaleInput) { in.Subtotal = d("-1") }},
		{"unoffered term", func(in *CreateSaleInput) { in.TermMonths = 5 }},
		{"negative interest", func(in *CreateSaleInput) { in.InterestPct = d("-3") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newMockRepository()
			svc := NewService(repo)

			input := validCreditInput()
			tc.mutate(&input)

			_, err := svc.CreateSale(context.Background(), input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, httpx.ErrValidation), "got %v", err)
			assert.Empty(t, repo.sales)
		})
	}
}

func TestGetSaleNotFound(t *testing.T) {
	svc := NewService(newMockRepository())
	_, err := svc.GetSale(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}
