package installments

import (
	"context"
	"errors"
	"fmt"

	"github.com/multilazos/multilazos/internal/platform/httpx"
)

// RepositoryPort defines data access methods for installments.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Installment, error)
	List(ctx context.Context, req ListRequest) ([]Installment, int, error)
	Update(ctx context.Context, id int64, input UpdateInput) (*Installment, error)
}

// CacheInvalidator signals that derived installment state changed.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Service handles installment business logic.
type Service struct {
	repo  RepositoryPort
	cache CacheInvalidator
}

// NewService builds Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache CacheInvalidator) *Service {
	return &Service{repo: repo, cache: cache}
}

// Get returns an installment by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Installment, error) {
	return s.repo.Get(ctx, id)
}

// List returns installments matching the request.
func (s *Service) List(ctx context.Context, req ListRequest) ([]Installment, int, error) {
	return s.repo.List(ctx, req)
}

// Update applies an administrative edit of due date and scheduled amount.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Installment, error) {
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due_date required", httpx.ErrValidation)
	}
	if input.Scheduled.IsNegative() {
		return nil, fmt.Errorf("%w: scheduled must not be negative", httpx.ErrValidation)
	}
	inst, err := s.repo.Update(ctx, id, input)
	if err != nil {
		if errors.Is(err, ErrBelowAllocated) {
			return nil, fmt.Errorf("%w: %v", httpx.ErrConflict, err)
		}
		return nil, err
	}
	if s.cache != nil {
		// Best effort; stale entries also age out with the cache TTL.
		_ = s.cache.Bump(ctx)
	}
	return inst, nil
}
