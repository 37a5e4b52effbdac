package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/db"
)

// Sentinel errors surfaced by the repository.
var (
	ErrNotFound           = errors.New("payments: not found")
	ErrUnknownSale        = errors.New("payments: sale does not exist")
	ErrUnknownInstallment = errors.New("payments: installment does not exist")
	ErrCrossSale          = errors.New("payments: installment belongs to a different sale")
	ErrOverAllocated      = errors.New("payments: allocations exceed payment amount")
	ErrOverScheduled      = errors.New("payments: installment would be paid above its scheduled amount")
	ErrDuplicateRow       = errors.New("payments: duplicate installment in allocation set")
)

// Repository provides PostgreSQL backed persistence for payments and the
// allocation ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreatePayment inserts a payment and, when given, its initial allocation
// rows in one transaction. The allocation invariants are checked inside the
// same transaction; on violation nothing is applied.
func (r *Repository) CreatePayment(ctx context.Context, input CreatePaymentInput, allocations []AllocationInput) (*Payment, error) {
	var payment Payment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO payments (reference, sale_id, paid_at, amount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			input.Reference, input.SaleID, input.PaidAt, input.Amount.String(),
		).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
		if err != nil {
			if isForeignKeyViolation(err) {
				return ErrUnknownSale
			}
			return fmt.Errorf("payments: insert payment: %w", err)
		}

		if len(allocations) > 0 {
			if err := insertAllocations(ctx, tx, payment.ID, input.SaleID, input.Amount, allocations); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payment.Reference = input.Reference
	payment.SaleID = input.SaleID
	payment.PaidAt = input.PaidAt
	payment.Amount = input.Amount
	return &payment, nil
}

// GetPayment retrieves a payment by ID.
func (r *Repository) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		SELECT id, reference, sale_id, paid_at, amount::text, created_at, updated_at
		FROM payments
		WHERE id = $1`, id))
}

// ListPayments returns payments, optionally scoped to one sale.
func (r *Repository) ListPayments(ctx context.Context, saleID int64) ([]Payment, error) {
	query := `
		SELECT id, reference, sale_id, paid_at, amount::text, created_at, updated_at
		FROM payments`
	args := []any{}
	if saleID > 0 {
		query += ` WHERE sale_id = $1`
		args = append(args, saleID)
	}
	query += ` ORDER BY paid_at, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var (
			p      Payment
			amount string
		)
		if err := rows.Scan(&p.ID, &p.Reference, &p.SaleID, &p.PaidAt, &amount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payments: parse amount: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DeletePayment removes the payment and its allocation rows in one
// transaction.
func (r *Repository) DeletePayment(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment_allocations WHERE payment_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM payments WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// GetAllocationsForPayment returns the current allocation rows of a payment;
// the empty set when there are none.
func (r *Repository) GetAllocationsForPayment(ctx context.Context, paymentID int64) ([]Allocation, error) {
	if _, err := r.GetPayment(ctx, paymentID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT payment_id, installment_id, amount::text
		FROM payment_allocations
		WHERE payment_id = $1
		ORDER BY installment_id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAllocations(rows)
}

// ReplaceAllocations deletes every allocation row of the payment and inserts
// the given set, atomically. Concurrent replaces for the same payment
// serialize on the payment row; readers never observe a partial replace.
func (r *Repository) ReplaceAllocations(ctx context.Context, paymentID int64, rows []AllocationInput) ([]Allocation, error) {
	var result []Allocation
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		payment, err := scanPayment(tx.QueryRow(ctx, `
			SELECT id, reference, sale_id, paid_at, amount::text, created_at, updated_at
			FROM payments
			WHERE id = $1
			FOR UPDATE`, paymentID))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM payment_allocations WHERE payment_id = $1`, paymentID); err != nil {
			return err
		}
		if err := insertAllocations(ctx, tx, paymentID, payment.SaleID, payment.Amount, rows); err != nil {
			return err
		}

		stored, err := tx.Query(ctx, `
			SELECT payment_id, installment_id, amount::text
			FROM payment_allocations
			WHERE payment_id = $1
			ORDER BY installment_id`, paymentID)
		if err != nil {
			return err
		}
		defer stored.Close()
		result, err = collectAllocations(stored)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// insertAllocations writes allocation rows and enforces the ledger
// invariants: the set must not exceed the payment amount, every installment
// must belong to the payment's sale, and no installment may end up allocated
// above its scheduled amount across all payments.
func insertAllocations(ctx context.Context, tx pgx.Tx, paymentID, saleID int64, paymentAmount decimal.Decimal, rows []AllocationInput) error {
	total := decimal.Zero
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		total = total.Add(row.Amount)
		ids = append(ids, row.InstallmentID)
	}
	if total.GreaterThan(paymentAmount) {
		return fmt.Errorf("%w: %s against %s", ErrOverAllocated, total.StringFixed(2), paymentAmount.StringFixed(2))
	}

	for _, row := range rows {
		var instSaleID int64
		err := tx.QueryRow(ctx, `
			SELECT sale_id FROM installments WHERE id = $1 FOR UPDATE`, row.InstallmentID,
		).Scan(&instSaleID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrUnknownInstallment, row.InstallmentID)
		}
		if err != nil {
			return err
		}
		if instSaleID != saleID {
			return fmt.Errorf("%w: installment %d", ErrCrossSale, row.InstallmentID)
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO payment_allocations (payment_id, installment_id, amount)
			VALUES ($1, $2, $3)`,
			paymentID, row.InstallmentID, row.Amount.String(),
		); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: installment %d", ErrDuplicateRow, row.InstallmentID)
			}
			return err
		}
	}

	if len(ids) == 0 {
		return nil
	}

	over, err := tx.Query(ctx, `
		SELECT i.id, i.scheduled::text, COALESCE(SUM(pa.amount), 0)::text
		FROM installments i
		LEFT JOIN payment_allocations pa ON pa.installment_id = i.id
		WHERE i.id = ANY($1)
		GROUP BY i.id, i.scheduled`, ids)
	if err != nil {
		return err
	}
	defer over.Close()
	for over.Next() {
		var (
			id                   int64
			scheduled, allocated string
		)
		if err := over.Scan(&id, &scheduled, &allocated); err != nil {
			return err
		}
		sch, err := decimal.NewFromString(scheduled)
		if err != nil {
			return fmt.Errorf("payments: parse scheduled: %w", err)
		}
		alloc, err := decimal.NewFromString(allocated)
		if err != nil {
			return fmt.Errorf("payments: parse allocated: %w", err)
		}
		if alloc.GreaterThan(sch) {
			return fmt.Errorf("%w: installment %d allocated %s of %s", ErrOverScheduled, id, alloc.StringFixed(2), sch.StringFixed(2))
		}
	}
	return over.Err()
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var (
		p      Payment
		amount string
	)
	err := row.Scan(&p.ID, &p.Reference, &p.SaleID, &p.PaidAt, &amount, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("payments: parse amount: %w", err)
	}
	return &p, nil
}

func collectAllocations(rows pgx.Rows) ([]Allocation, error) {
	var allocations []Allocation
	for rows.Next() {
		var (
			a      Allocation
			amount string
		)
		if err := rows.Scan(&a.PaymentID, &a.InstallmentID, &amount); err != nil {
			return nil, err
		}
		var err error
		if a.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payments: parse allocation amount: %w", err)
		}
		allocations = append(allocations, a)
	}
	return allocations, rows.Err()
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
