package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/installments"
	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// RepositoryPort defines data access methods for payments.
type RepositoryPort interface {
	CreatePayment(ctx context.Context, input CreatePaymentInput, allocations []AllocationInput) (*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	ListPayments(ctx context.Context, saleID int64) ([]Payment, error)
	DeletePayment(ctx context.Context, id int64) error
	GetAllocationsForPayment(ctx context.Context, paymentID int64) ([]Allocation, error)
	ReplaceAllocations(ctx context.Context, paymentID int64, rows []AllocationInput) ([]Allocation, error)
}

// InstallmentDirectory resolves installments for the assign shortcut.
type InstallmentDirectory interface {
	Get(ctx context.Context, id int64) (*installments.Installment, error)
}

// IdempotencyGuard protects payment creation against duplicate submissions.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// CacheInvalidator signals that derived installment state changed.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

const idempotencyModule = "payments"

// Service handles payment and allocation business logic.
type Service struct {
	repo         RepositoryPort
	installments InstallmentDirectory
	idempotency  IdempotencyGuard
	cache        CacheInvalidator
}

// NewService builds Service instance. idempotency and cache may be nil.
func NewService(repo RepositoryPort, dir InstallmentDirectory, idem IdempotencyGuard, cache CacheInvalidator) *Service {
	return &Service{repo: repo, installments: dir, idempotency: idem, cache: cache}
}

// Create records a payment against a sale. idemKey, when non-empty, makes the
// call replay-safe: a second submission with the same key is rejected as a
// conflict before any write.
func (s *Service) Create(ctx context.Context, input CreatePaymentInput, idemKey string) (*Payment, error) {
	if input.SaleID <= 0 {
		return nil, fmt.Errorf("%w: sale_id required", httpx.ErrValidation)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	}
	if input.PaidAt.IsZero() {
		input.PaidAt = time.Now()
	}
	if input.Reference == "" {
		input.Reference = uuid.NewString()
	}

	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, idempotencyModule); err != nil {
			return nil, fmt.Errorf("%w: %v", httpx.ErrConflict, err)
		}
	}

	payment, err := s.repo.CreatePayment(ctx, input, nil)
	if err != nil {
		if s.idempotency != nil && idemKey != "" {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return nil, mapLedgerError(err)
	}
	return payment, nil
}

// AssignToInstallment is the single-target shortcut: it records a payment on
// the installment's sale and allocates the full amount to that installment,
// in one transaction through the same ledger rules as the bulk allocator.
func (s *Service) AssignToInstallment(ctx context.Context, installmentID int64, amount decimal.Decimal, paidAt time.Time) (*Payment, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	}
	inst, err := s.installments.Get(ctx, installmentID)
	if err != nil {
		if errors.Is(err, installments.ErrNotFound) {
			return nil, fmt.Errorf("%w: installment not found", httpx.ErrNotFound)
		}
		return nil, err
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	payment, err := s.repo.CreatePayment(ctx, CreatePaymentInput{
		SaleID:    inst.SaleID,
		Reference: uuid.NewString(),
		PaidAt:    paidAt,
		Amount:    amount,
	}, []AllocationInput{{InstallmentID: installmentID, Amount: amount}})
	if err != nil {
		return nil, mapLedgerError(err)
	}
	s.bump(ctx)
	return payment, nil
}

// Get returns a payment by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Payment, error) {
	p, err := s.repo.GetPayment(ctx, id)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return p, nil
}

// List returns payments, optionally scoped to a sale.
func (s *Service) List(ctx context.Context, saleID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, saleID)
}

// Delete removes a payment. Its allocation rows go with it so no installment
// is left referencing a vanished payment.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeletePayment(ctx, id); err != nil {
		return mapLedgerError(err)
	}
	s.bump(ctx)
	return nil
}

// Allocations returns the current allocation rows for a payment.
func (s *Service) Allocations(ctx context.Context, paymentID int64) ([]Allocation, error) {
	rows, err := s.repo.GetAllocationsForPayment(ctx, paymentID)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	return rows, nil
}

// ReplaceAllocations swaps the full allocation set of a payment. Rows with a
// non-positive amount are dropped before the write, matching the reference
// save behavior.
func (s *Service) ReplaceAllocations(ctx context.Context, paymentID int64, rows []AllocationInput) ([]Allocation, error) {
	filtered := make([]AllocationInput, 0, len(rows))
	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		if !row.Amount.IsPositive() {
			continue
		}
		if row.InstallmentID <= 0 {
			return nil, fmt.Errorf("%w: installment_id required", httpx.ErrValidation)
		}
		if seen[row.InstallmentID] {
			return nil, fmt.Errorf("%w: installment %d listed twice", httpx.ErrValidation, row.InstallmentID)
		}
		seen[row.InstallmentID] = true
		filtered = append(filtered, row)
	}

	stored, err := s.repo.ReplaceAllocations(ctx, paymentID, filtered)
	if err != nil {
		return nil, mapLedgerError(err)
	}
	s.bump(ctx)
	return stored, nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache != nil {
		// Best effort; stale entries also age out with the cache TTL.
		_ = s.cache.Bump(ctx)
	}
}

// mapLedgerError translates repository sentinels into transport-level ones.
func mapLedgerError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return fmt.Errorf("%w: payment not found", httpx.ErrNotFound)
	case errors.Is(err, ErrUnknownSale), errors.Is(err, ErrUnknownInstallment),
		errors.Is(err, ErrCrossSale), errors.Is(err, ErrDuplicateRow):
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, ErrOverAllocated), errors.Is(err, ErrOverScheduled):
		return fmt.Errorf("%w: %v", httpx.ErrConflict, err)
	default:
		return err
	}
}
