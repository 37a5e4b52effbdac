package reconciliation

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type mockRepository struct {
	rows  []SourceRow
	calls int
	err   error
}

func (m *mockRepository) Load(ctx context.Context, f Filter) ([]SourceRow, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := []SourceRow{}
	for _, row := range m.rows {
		if f.SaleID > 0 && row.SaleID != f.SaleID {
			continue
		}
		if !f.From.IsZero() && row.DueDate.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && row.DueDate.After(f.To) {
			continue
		}
		out = append(out, row)
	}
	// Match the real repository's ORDER BY i.due_date, i.sale_id, i.seq.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		if out[i].SaleID != out[j].SaleID {
			return out[i].SaleID < out[j].SaleID
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func seedRows() []SourceRow {
	return []SourceRow{
		{InstallmentID: 1, SaleID: 10, Seq: 1, DueDate: date(2026, 4, 10), Scheduled: d("100.00"), Paid: d("100.00"), ClientName: "Carla Medina", SaleKind: "credit"},
		{InstallmentID: 2, SaleID: 10, Seq: 2, DueDate: date(2026, 5, 10), Scheduled: d("100.00"), Paid: d("40.00"), ClientName: "Carla Medina", SaleKind: "credit"},
		{InstallmentID: 3, SaleID: 10, Seq: 3, DueDate: date(2026, 6, 10), Scheduled: d("100.00"), Paid: d("0"), ClientName: "Carla Medina", SaleKind: "credit"},
		{InstallmentID: 4, SaleID: 20, Seq: 1, DueDate: date(2026, 4, 2), Scheduled: d("250.00"), Paid: d("0"), ClientName: "Luis Ferreyra", SaleKind: "credit"},
	}
}

func newTestService(t *testing.T, repo *mockRepository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

// ============================================================================
// TESTS
// ============================================================================

func TestViewDerivesAndTotals(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	view, err := svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	require.Equal(t, 4, view.Count)

	// Ordering comes from the repository: due date first.
	assert.Equal(t, int64(4), view.Results[0].InstallmentID)
	assert.Equal(t, StatusPaid, view.Results[1].Status)
	assert.Equal(t, StatusPartial, view.Results[2].Status)
	assert.Equal(t, "2026-05-10", view.Results[2].DueDate)

	assert.Equal(t, 4, view.Totals.Rows)
	assert.Equal(t, 2, view.Totals.Pending)
	assert.Equal(t, 1, view.Totals.Partial)
	assert.Equal(t, 1, view.Totals.Paid)
	assert.True(t, view.Totals.ScheduledSum.Equal(d("550.00")))
	assert.True(t, view.Totals.PaidSum.Equal(d("140.00")))
	assert.True(t, view.Totals.RemainingSum.Equal(d("410.00")))
}

func TestViewFiltersCompose(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	view, err := svc.View(context.Background(), Filter{
		SaleID: 10,
		Status: StatusPending,
		From:   date(2026, 5, 1),
	})
	require.NoError(t, err)
	require.Equal(t, 1, view.Count)
	assert.Equal(t, int64(3), view.Results[0].InstallmentID)
}

func TestViewFreeTextMatch(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	view, err := svc.View(context.Background(), Filter{Query: "ferreyra"})
	require.NoError(t, err)
	require.Equal(t, 1, view.Count)
	assert.Equal(t, int64(4), view.Results[0].InstallmentID)

	view, err = svc.View(context.Background(), Filter{Query: "partial"})
	require.NoError(t, err)
	require.Equal(t, 1, view.Count)
	assert.Equal(t, int64(2), view.Results[0].InstallmentID)
}

func TestViewInvalidStatus(t *testing.T) {
	svc := newTestService(t, &mockRepository{})

	_, err := svc.View(context.Background(), Filter{Status: "overdue"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation), "got %v", err)
}

func TestViewUnknownSaleIsEmpty(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	view, err := svc.View(context.Background(), Filter{SaleID: 999})
	require.NoError(t, err)
	assert.Equal(t, 0, view.Count)
	assert.NotNil(t, view.Results)
	assert.Equal(t, 0, view.Totals.Rows)
}

func TestViewPagination(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	view, err := svc.View(context.Background(), Filter{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Count)
	assert.Equal(t, 2, view.Page)
	assert.Equal(t, 3, view.PageSize)
	assert.Equal(t, 2, view.TotalPages)
	assert.Len(t, view.Results, 1)

	// Past the end is an empty page, not an error.
	view, err = svc.View(context.Background(), Filter{Page: 9, PageSize: 3})
	require.NoError(t, err)
	assert.Empty(t, view.Results)
}

func TestViewUsesCacheUntilBump(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := newTestService(t, repo)

	_, err := svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	_, err = svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls, "second read must come from the cache")

	// Pagination shares the cached row set.
	_, err = svc.View(context.Background(), Filter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.calls)

	require.NoError(t, svc.Bump(context.Background()))
	_, err = svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls, "bump must retire the cached view")
}

func TestViewWithoutCache(t *testing.T) {
	repo := &mockRepository{rows: seedRows()}
	svc := NewService(repo, nil)

	view, err := svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Count)

	_, err = svc.View(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.calls)
}
