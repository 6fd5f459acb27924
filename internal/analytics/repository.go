package analytics

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository runs the analytics aggregate queries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SalesTrend returns per-day invoice totals over the window.
func (r *Repository) SalesTrend(ctx context.Context, from, to time.Time) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT invoice_date, COUNT(*), COALESCE(SUM(total_amount), 0)
		FROM invoices
		WHERE invoice_date BETWEEN $1 AND $2
		GROUP BY invoice_date
		ORDER BY invoice_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []TrendPoint
	for rows.Next() {
		var p TrendPoint
		if err := rows.Scan(&p.Date, &p.InvoiceCount, &p.TotalAmount); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// TopProducts ranks products by revenue over the window.
func (r *Repository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductSales, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.item_code, p.description,
			COALESCE(SUM(ii.quantity), 0), COALESCE(SUM(ii.amount), 0)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id
		WHERE i.invoice_date BETWEEN $1 AND $2
		GROUP BY p.id, p.item_code, p.description
		ORDER BY SUM(ii.amount) DESC
		LIMIT $3`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProductSales
	for rows.Next() {
		var s ProductSales
		if err := rows.Scan(&s.ProductID, &s.ItemCode, &s.Description, &s.Quantity, &s.Revenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SlowMoving lists stocked products with no sales since the cutoff.
func (r *Repository) SlowMoving(ctx context.Context, cutoff time.Time) ([]SlowMover, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.item_code, p.description, p.stock, MAX(i.invoice_date)
		FROM products p
		LEFT JOIN invoice_items ii ON ii.product_id = p.id
		LEFT JOIN invoices i ON i.id = ii.invoice_id
		WHERE p.stock > 0
		GROUP BY p.id, p.item_code, p.description, p.stock
		HAVING MAX(i.invoice_date) IS NULL OR MAX(i.invoice_date) < $1
		ORDER BY MAX(i.invoice_date) NULLS FIRST, p.item_code`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlowMover
	for rows.Next() {
		var m SlowMover
		var last pgtype.Date
		if err := rows.Scan(&m.ProductID, &m.ItemCode, &m.Description, &m.Stock, &last); err != nil {
			return nil, err
		}
		if last.Valid {
			t := last.Time
			m.LastSoldDate = &t
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
