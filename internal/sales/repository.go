package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/multilazos/multilazos/internal/platform/db"
)

// ErrNotFound indicates the sale does not exist.
var ErrNotFound = errors.New("sales: not found")

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateSale inserts the sale and its installment schedule in one transaction.
func (r *Repository) CreateSale(ctx context.Context, input CreateSaleInput, total decimal.Decimal, schedule []ScheduledInstallment) (*Sale, error) {
	var sale Sale
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO sales (client_name, kind, sale_date, term_months, interest_pct, total, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			input.ClientName,
			string(input.Kind),
			input.SaleDate,
			input.TermMonths,
			input.InterestPct.String(),
			total.String(),
		).Scan(&sale.ID, &sale.CreatedAt, &sale.UpdatedAt)
		if err != nil {
			return fmt.Errorf("sales: insert sale: %w", err)
		}

		for _, s := range schedule {
			if _, err := tx.Exec(ctx, `
				INSERT INTO installments (sale_id, seq, due_date, scheduled)
				VALUES ($1, $2, $3, $4)`,
				sale.ID, s.Seq, s.DueDate, s.Amount.String(),
			); err != nil {
				return fmt.Errorf("sales: insert installment %d: %w", s.Seq, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sale.ClientName = input.ClientName
	sale.Kind = input.Kind
	sale.SaleDate = input.SaleDate
	sale.TermMonths = input.TermMonths
	sale.InterestPct = input.InterestPct
	sale.Total = total
	return &sale, nil
}

// GetSale retrieves a sale by ID.
func (r *Repository) GetSale(ctx context.Context, id int64) (*Sale, error) {
	var (
		sale     Sale
		kind     string
		interest string
		total    string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, client_name, kind, sale_date, term_months, interest_pct::text, total::text, created_at, updated_at
		FROM sales
		WHERE id = $1`, id,
	).Scan(&sale.ID, &sale.ClientName, &kind, &sale.SaleDate, &sale.TermMonths, &interest, &total, &sale.CreatedAt, &sale.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sale.Kind = Kind(kind)
	if sale.InterestPct, err = decimal.NewFromString(interest); err != nil {
		return nil, fmt.Errorf("sales: parse interest: %w", err)
	}
	if sale.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("sales: parse total: %w", err)
	}
	return &sale, nil
}

// ListSales returns sales with optional filtering plus the unpaged count.
func (r *Repository) ListSales(ctx context.Context, req ListSalesRequest) ([]Sale, int, error) {
	query := `
		SELECT id, client_name, kind, sale_date, term_months, interest_pct::text, total::text, created_at, updated_at,
			COUNT(*) OVER() AS full_count
		FROM sales
		WHERE 1=1`

	args := []any{}
	argNum := 1

	if req.ClientQuery != "" {
		query += fmt.Sprintf(" AND client_name ILIKE $%d", argNum)
		args = append(args, "%"+req.ClientQuery+"%")
		argNum++
	}
	if req.Kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argNum)
		args = append(args, string(req.Kind))
		argNum++
	}

	query += " ORDER BY id DESC"

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
		sales []Sale
		count int
	)
	for rows.Next() {
		var (
			sale     Sale
			kind     string
			interest string
			total    string
		)
		if err := rows.Scan(&sale.ID, &sale.ClientName, &kind, &sale.SaleDate, &sale.TermMonths, &interest, &total, &sale.CreatedAt, &sale.UpdatedAt, &count); err != nil {
			return nil, 0, err
		}
		sale.Kind = Kind(kind)
		if sale.InterestPct, err = decimal.NewFromString(interest); err != nil {
			return nil, 0, fmt.Errorf("sales: parse interest: %w", err)
		}
		if sale.Total, err = decimal.NewFromString(total); err != nil {
			return nil, 0, fmt.Errorf("sales: parse total: %w", err)
		}
		sales = append(sales, sale)
	}
	return sales, count, rows.Err()
}
