package reconciliation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/multilazos/multilazos/internal/platform/httpx"
	"github.com/multilazos/multilazos/internal/shared"
)

// RepositoryPort defines data access for the view.
type RepositoryPort interface {
	Load(ctx context.Context, f Filter) ([]SourceRow, error)
}

// Service assembles the reconciliation view: repository rows through the
// deriver, then free-text/status filtering, totals and pagination. Results
// are cached per filter under the global ledger version.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// Bump invalidates cached views after a ledger mutation.
func (s *Service) Bump(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// filtered is the cacheable unit: every row matching the filter, plus totals.
type filtered struct {
	Rows   []Row  `json:"rows"`
	Totals Totals `json:"totals"`
}

// View returns the reconciliation view for the filter. An unknown sale id
// simply yields an empty view.
func (s *Service) View(ctx context.Context, f Filter) (*View, error) {
	switch f.Status {
	case "", "all", StatusPending, StatusPartial, StatusPaid:
	default:
		return nil, fmt.Errorf("%w: status must be pending, partial, paid or all", httpx.ErrValidation)
	}

	key, err := s.cache.BuildKey(ctx, "reconciliation", "view", cacheToken(f))
	if err != nil {
		return nil, err
	}

	var data filtered
	if err := s.cache.FetchJSON(ctx, key, &data, func(ctx context.Context) (interface{}, error) {
		v, err, _ := s.group.Do(key, func() (interface{}, error) {
			return s.build(ctx, f)
		})
		return v, err
	}); err != nil {
		return nil, err
	}

	p := shared.NewPagination(f.Page, f.PageSize, len(data.Rows))
	start, end := p.Slice(len(data.Rows))
	results := data.Rows[start:end]
	if results == nil {
		results = []Row{}
	}

	return &View{
		Count:      len(data.Rows),
		Page:       p.Page,
		PageSize:   p.PerPage,
		TotalPages: p.TotalPages,
		Results:    results,
		Totals:     data.Totals,
	}, nil
}

// build computes the filtered rows and totals from source data.
func (s *Service) build(ctx context.Context, f Filter) (*filtered, error) {
	source, err := s.repo.Load(ctx, f)
	if err != nil {
		return nil, err
	}

	out := filtered{
		Rows: []Row{},
		Totals: Totals{
			ScheduledSum: decimal.Zero,
			PaidSum:      decimal.Zero,
			RemainingSum: decimal.Zero,
		},
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))

	for _, src := range source {
		derived := DeriveOne(src.Scheduled, src.Paid)

		row := Row{
			InstallmentID: src.InstallmentID,
			SaleID:        src.SaleID,
			Seq:           src.Seq,
			DueDate:       src.DueDate.Format("2006-01-02"),
			Scheduled:     src.Scheduled,
			Paid:          derived.Paid,
			Remaining:     derived.Remaining,
			Status:        derived.Status,
			ClientName:    src.ClientName,
			SaleKind:      src.SaleKind,
		}

		if f.Status != "" && f.Status != "all" && row.Status != f.Status {
			continue
		}
		if query != "" && !matchesQuery(row, query) {
			continue
		}

		out.Rows = append(out.Rows, row)
		out.Totals.Rows++
		switch row.Status {
		case StatusPending:
			out.Totals.Pending++
		case StatusPartial:
			out.Totals.Partial++
		case StatusPaid:
			out.Totals.Paid++
		}
		out.Totals.ScheduledSum = out.Totals.ScheduledSum.Add(row.Scheduled)
		out.Totals.PaidSum = out.Totals.PaidSum.Add(row.Paid)
		out.Totals.RemainingSum = out.Totals.RemainingSum.Add(row.Remaining)
	}

	return &out, nil
}

// matchesQuery reproduces the reference screen's loose free-text match over
// installment id, sale id, sequence, client name, sale kind and status.
func matchesQuery(row Row, query string) bool {
	haystack := strings.ToLower(strings.Join([]string{
		strconv.FormatInt(row.InstallmentID, 10),
		strconv.FormatInt(row.SaleID, 10),
		strconv.Itoa(row.Seq),
		row.ClientName,
		row.SaleKind,
		string(row.Status),
	}, " "))
	return strings.Contains(haystack, query)
}

// cacheToken encodes the cacheable filter parts (pagination excluded).
func cacheToken(f Filter) string {
	from := ""
	if !f.From.IsZero() {
		from = f.From.Format("2006-01-02")
	}
	to := ""
	if !f.To.IsZero() {
		to = f.To.Format("2006-01-02")
	}
	return strings.Join([]string{
		strings.ToLower(f.Query),
		string(f.Status),
		from,
		to,
		strconv.FormatInt(f.SaleID, 10),
	}, "|")
}
