package installments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/db"
)

// ErrNotFound indicates the installment does not exist.
var ErrNotFound = errors.New("installments: not found")

// Repository provides PostgreSQL backed persistence for installments.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func scanInstallment(row pgx.Row) (*Installment, error) {
	var (
		inst      Installment
		scheduled string
	)
	err := row.Scan(&inst.ID, &inst.SaleID, &inst.Seq, &inst.DueDate, &scheduled)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if inst.Scheduled, err = decimal.NewFromString(scheduled); err != nil {
		return nil, fmt.Errorf("installments: parse scheduled: %w", err)
	}
	return &inst, nil
}

// Get retrieves an installment by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Installment, error) {
	return scanInstallment(r.pool.QueryRow(ctx, `
		SELECT id, sale_id, seq, due_date, scheduled::text
		FROM installments
		WHERE id = $1`, id))
}

// List returns installments for the request plus the unpaged count. Ordering
// is due date, then sale, then sequence.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Installment, int, error) {
	query := `
		SELECT id, sale_id, seq, due_date, scheduled::text, COUNT(*) OVER() AS full_count
		FROM installments
		WHERE 1=1`

	args := []any{}
	argNum := 1

	if req.SaleID > 0 {
		query += fmt.Sprintf(" AND sale_id = $%d", argNum)
		args = append(args, req.SaleID)
		argNum++
	}
	if !req.From.IsZero() {
		query += fmt.Sprintf(" AND due_date >= $%d", argNum)
		args = append(args, req.From)
		argNum++
	}
	if !req.To.IsZero() {
		query += fmt.Sprintf(" AND due_date <= $%d", argNum)
		args = append(args, req.To)
		argNum++
	}
	if req.Query != "" {
		// Same loose match the reference screen offered: sale id, sequence
		// number or due date rendered as text.
		query += fmt.Sprintf(" AND (sale_id::text || ' ' || seq::text || ' ' || due_date::text) ILIKE $%d", argNum)
		args = append(args, "%"+req.Query+"%")
		argNum++
	}

	query += " ORDER BY due_date, sale_id, seq"

	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = 10
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		items []Installment
		count int
	)
	for rows.Next() {
		var (
			inst      Installment
			scheduled string
		)
		if err := rows.Scan(&inst.ID, &inst.SaleID, &inst.Seq, &inst.DueDate, &scheduled, &count); err != nil {
			return nil, 0, err
		}
		if inst.Scheduled, err = decimal.NewFromString(scheduled); err != nil {
			return nil, 0, fmt.Errorf("installments: parse scheduled: %w", err)
		}
		items = append(items, inst)
	}
	return items, count, rows.Err()
}

// Update applies an administrative edit. The new scheduled amount must cover
// what is already allocated against the installment; the check runs in the
// same transaction as the write.
func (r *Repository) Update(ctx context.Context, id int64, input UpdateInput) (*Installment, error) {
	var updated *Installment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inst, err := scanInstallment(tx.QueryRow(ctx, `
			SELECT id, sale_id, seq, due_date, scheduled::text
			FROM installments
			WHERE id = $1
			FOR UPDATE`, id))
		if err != nil {
			return err
		}

		var allocated string
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount), 0)::text
			FROM payment_allocations
			WHERE installment_id = $1`, id,
		).Scan(&allocated); err != nil {
			return err
		}
		paid, err := decimal.NewFromString(allocated)
		if err != nil {
			return fmt.Errorf("installments: parse allocated: %w", err)
		}
		if input.Scheduled.LessThan(paid) {
			return fmt.Errorf("installments: scheduled %s below allocated %s: %w",
				input.Scheduled.StringFixed(2), paid.StringFixed(2), ErrBelowAllocated)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE installments
			SET due_date = $2, scheduled = $3
			WHERE id = $1`,
			id, input.DueDate, input.Scheduled.String(),
		); err != nil {
			return err
		}

		inst.DueDate = input.DueDate
		inst.Scheduled = input.Scheduled
		updated = inst
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ErrBelowAllocated indicates an edit would shrink an installment under its
// allocated total.
var ErrBelowAllocated = errors.New("installments: scheduled below allocated total")
