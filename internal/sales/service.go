package sales

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// RepositoryPort defines data access methods for sales.
type RepositoryPort interface {
	CreateSale(ctx context.Context, input CreateSaleInput, total decimal.Decimal, schedule []ScheduledInstallment) (*Sale, error)
	GetSale(ctx context.Context, id int64) (*Sale, error)
	ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error)
}

// Service handles sale business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// CreateSale validates the input, derives the final total and, for credit
// sales, the installment schedule, then persists everything atomically.
func (s *Service) CreateSale(ctx context.Context, input CreateSaleInput) (*Sale, error) {
	input.ClientName = strings.TrimSpace(input.ClientName)
	if input.ClientName == "" {
		return nil, fmt.Errorf("%w: client name required", httpx.ErrValidation)
	}
	if input.Kind != KindCash && input.Kind != KindCredit {
		return nil, fmt.Errorf("%w: kind must be cash or credit", httpx.ErrValidation)
	}
	if input.SaleDate.IsZero() {
		return nil, fmt.Errorf("%w: sale date required", httpx.ErrValidation)
	}
	if !input.Subtotal.IsPositive() {
		return nil, fmt.Errorf("%w: subtotal must be positive", httpx.ErrValidation)
	}

	// Cash sales never carry a term or interest; credit sales must use an
	// offered term.
	if input.Kind == KindCash {
		input.TermMonths = 0
		input.InterestPct = decimal.Zero
	} else {
		if !ValidTerm(input.TermMonths) {
			return nil, fmt.Errorf("%w: term_months must be one of %v", httpx.ErrValidation, ValidTerms)
		}
		if input.InterestPct.IsNegative() {
			return nil, fmt.Errorf("%w: interest_pct must not be negative", httpx.ErrValidation)
		}
	}

	total := FinalTotal(input.Subtotal, input.InterestPct)

	var schedule []ScheduledInstallment
	if input.Kind == KindCredit {
		schedule = BuildSchedule(total, input.TermMonths, input.SaleDate)
	}

	return s.repo.CreateSale(ctx, input, total, schedule)
}

// GetSale returns a sale by ID.
func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sales matching the request.
func (s *Service) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	return s.repo.ListSales(ctx, req)
}
