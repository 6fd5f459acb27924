package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/ledger"
	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for invoices.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// WithTx runs fn against a transaction-scoped view of the repository.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// GetInvoice loads an invoice with its lines.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, err := getInvoice(ctx, r.pool, id)
	if err != nil {
		return Invoice{}, err
	}
	items, err := listLineItemsDetailed(ctx, r.pool, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.Items = items
	return inv, nil
}

// ListInvoices returns invoices matching the filter and the total count.
func (r *Repository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argNum := 0

	if !filter.From.IsZero() {
		argNum++
		where += fmt.Sprintf(" AND invoice_date >= $%d", argNum)
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		argNum++
		where += fmt.Sprintf(" AND invoice_date <= $%d", argNum)
		args = append(args, filter.To)
	}
	if filter.CustomerID > 0 {
		argNum++
		where += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, filter.CustomerID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, order_number, invoice_date, customer_id, customer_name, total_amount, total_items, payment_status
		FROM invoices` + where + ` ORDER BY invoice_date DESC, id DESC`
	if filter.Limit > 0 {
		argNum++
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		argNum++
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, total, rows.Err()
}

// Summarize aggregates per-day invoice totals over a window.
func (r *Repository) Summarize(ctx context.Context, from, to time.Time) ([]DaySummary, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT invoice_date, COUNT(*), COALESCE(SUM(total_items), 0), COALESCE(SUM(total_amount), 0)
		FROM invoices
		WHERE invoice_date BETWEEN $1 AND $2
		GROUP BY invoice_date
		ORDER BY invoice_date`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var days []DaySummary
	for rows.Next() {
		var d DaySummary
		if err := rows.Scan(&d.Date, &d.InvoiceCount, &d.ItemCount, &d.TotalAmount); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

type txRepo struct {
	q querier
}

// NextOrderNumber allocates the next sequence value for the given day. The
// upsert takes a row lock on the day's counter, so concurrent creators for
// the same date serialize here and each sees a distinct value. A rolled-back
// invoice also rolls back the increment, keeping the sequence gapless.
func (t *txRepo) NextOrderNumber(ctx context.Context, date time.Time) (int, error) {
	var seq int
	err := t.q.QueryRow(ctx, `
		INSERT INTO invoice_day_counters (counter_date, last_number)
		VALUES ($1, 1)
		ON CONFLICT (counter_date)
		DO UPDATE SET last_number = invoice_day_counters.last_number + 1
		RETURNING last_number`, date).Scan(&seq)
	return seq, err
}

func (t *txRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var customerID pgtype.Int8
	if inv.CustomerID != nil {
		customerID = pgtype.Int8{Int64: *inv.CustomerID, Valid: true}
	}
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO invoices (order_number, invoice_date, customer_id, customer_name, total_amount, total_items, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		inv.OrderNumber, inv.Date, customerID, inv.CustomerName, inv.TotalAmount, inv.TotalItems, string(inv.Status),
	).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateInvoiceHeader(ctx context.Context, inv Invoice) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE invoices
		SET invoice_date = $2, customer_name = $3, total_amount = $4, total_items = $5
		WHERE id = $1`,
		inv.ID, inv.Date, inv.CustomerName, inv.TotalAmount, inv.TotalItems)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, inv.ID)
	}
	return nil
}

func (t *txRepo) DeleteInvoice(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return getInvoice(ctx, t.q, id)
}

func (t *txRepo) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, invoice_id, product_id, quantity, price, amount
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.Quantity, &item.Price, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t *txRepo) InsertLineItems(ctx context.Context, invoiceID int64, items []LineItem) error {
	for i := range items {
		err := t.q.QueryRow(ctx, `
			INSERT INTO invoice_items (invoice_id, product_id, quantity, price, amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			invoiceID, items[i].ProductID, items[i].Quantity, items[i].Price, items[i].Amount,
		).Scan(&items[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepo) DeleteLineItems(ctx context.Context, invoiceID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID)
	return err
}

func (t *txRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductRef, error) {
	var ref ProductRef
	err := t.q.QueryRow(ctx, `SELECT id, stock FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&ref.ID, &ref.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRef{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return ref, err
}

func (t *txRepo) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	tag, err := t.q.Exec(ctx, `UPDATE products SET stock = stock + $2, updated_at = NOW() WHERE id = $1`, productID, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return nil
}

func getInvoice(ctx context.Context, q querier, id int64) (Invoice, error) {
	row := q.QueryRow(ctx, `
		SELECT id, order_number, invoice_date, customer_id, customer_name, total_amount, total_items, payment_status
		FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Invoice{}, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return inv, err
}

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var customerID pgtype.Int8
	var customerName pgtype.Text
	var status string
	err := row.Scan(&inv.ID, &inv.OrderNumber, &inv.Date, &customerID, &customerName, &inv.TotalAmount, &inv.TotalItems, &status)
	if err != nil {
		return Invoice{}, err
	}
	if customerID.Valid {
		inv.CustomerID = &customerID.Int64
	}
	if customerName.Valid {
		inv.CustomerName = customerName.String
	}
	inv.Status = ledger.PaymentStatus(status)
	return inv, nil
}

func listLineItemsDetailed(ctx context.Context, q querier, invoiceID int64) ([]LineItem, error) {
	rows, err := q.Query(ctx, `
		SELECT i.id, i.invoice_id, i.product_id, p.item_code, p.description, p.uom, i.quantity, i.price, i.amount
		FROM invoice_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.invoice_id = $1
		ORDER BY i.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []LineItem
	for rows.Next() {
		var item LineItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.ProductID, &item.ProductCode, &item.Description, &item.Unit, &item.Quantity, &item.Price, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
