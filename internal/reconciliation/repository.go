package reconciliation

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository reads the joined installment/allocation/sale projection.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Load returns the raw rows for the filter's SQL-expressible parts (sale and
// due-date range). Free-text and status filtering happen after derivation.
func (r *Repository) Load(ctx context.Context, f Filter) ([]SourceRow, error) {
	query := `
		SELECT i.id, i.sale_id, i.seq, i.due_date, i.scheduled::text,
			COALESCE(SUM(pa.amount), 0)::text AS paid,
			s.client_name, s.kind
		FROM installments i
		JOIN sales s ON s.id = i.sale_id
		LEFT JOIN payment_allocations pa ON pa.installment_id = i.id
		WHERE 1=1`

	args := []any{}
	argNum := 1

	if f.SaleID > 0 {
		query += fmt.Sprintf(" AND i.sale_id = $%d", argNum)
		args = append(args, f.SaleID)
		argNum++
	}
	if !f.From.IsZero() {
		query += fmt.Sprintf(" AND i.due_date >= $%d", argNum)
		args = append(args, f.From)
		argNum++
	}
	if !f.To.IsZero() {
		query += fmt.Sprintf(" AND i.due_date <= $%d", argNum)
		args = append(args, f.To)
		argNum++
	}

	query += `
		GROUP BY i.id, i.sale_id, i.seq, i.due_date, i.scheduled, s.client_name, s.kind
		ORDER BY i.due_date, i.sale_id, i.seq`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceRow
	for rows.Next() {
		var (
			row             SourceRow
			scheduled, paid string
		)
		if err := rows.Scan(&row.InstallmentID, &row.SaleID, &row.Seq, &row.DueDate, &scheduled, &paid, &row.ClientName, &row.SaleKind); err != nil {
			return nil, err
		}
		if row.Scheduled, err = decimal.NewFromString(scheduled); err != nil {
			return nil, fmt.Errorf("reconciliation: parse scheduled: %w", err)
		}
		if row.Paid, err = decimal.NewFromString(paid); err != nil {
			return nil, fmt.Errorf("reconciliation: parse paid: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
