package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the ledger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
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

// ListTransactions lists a customer's movements outside a transaction.
func (r *Repository) ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	return listTransactions(ctx, r.pool, customerID)
}

// ListReceivables lists a customer's obligations outside a transaction.
func (r *Repository) ListReceivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	return listReceivables(ctx, r.pool, customerID)
}

type txRepo struct {
	q querier
}

func (t *txRepo) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID).Scan(&exists)
	return exists, err
}

func (t *txRepo) CustomerName(ctx context.Context, customerID int64) (string, error) {
	var name string
	err := t.q.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, customerID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("%w: customer %d", shared.ErrNotFound, customerID)
	}
	return name, err
}

func (t *txRepo) InsertTransaction(ctx context.Context, rec Transaction) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO customer_transactions (customer_id, occurred_at, amount, kind, method, reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		rec.CustomerID, rec.Date, rec.Amount, string(rec.Kind), rec.Method, rec.Reference, rec.Notes,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var rec Transaction
	var kind string
	err := t.q.QueryRow(ctx, `
		SELECT id, customer_id, occurred_at, amount, kind, method, reference, notes
		FROM customer_transactions WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CustomerID, &rec.Date, &rec.Amount, &kind, &rec.Method, &rec.Reference, &rec.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Transaction{}, err
	}
	rec.Kind = TransactionKind(kind)
	return rec, nil
}

func (t *txRepo) UpdateTransaction(ctx context.Context, rec Transaction) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE customer_transactions
		SET amount = $2, method = $3, reference = $4, notes = $5
		WHERE id = $1`,
		rec.ID, rec.Amount, rec.Method, rec.Reference, rec.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, rec.ID)
	}
	return nil
}

func (t *txRepo) DeleteTransaction(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM customer_transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	return listTransactions(ctx, t.q, customerID)
}

func (t *txRepo) InsertReceivable(ctx context.Context, rec Receivable) (int64, error) {
	var invoiceID pgtype.Int8
	if rec.InvoiceID != nil {
		invoiceID = pgtype.Int8{Int64: *rec.InvoiceID, Valid: true}
	}
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO customer_receivables (customer_id, amount, additional_amount, notes, recorded_at, invoice_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		rec.CustomerID, rec.Amount, rec.AdditionalAmount, rec.Notes, rec.Date, invoiceID,
	).Scan(&id)
	return id, err
}

func (t *txRepo) GetReceivable(ctx context.Context, id int64) (Receivable, error) {
	var rec Receivable
	var invoiceID pgtype.Int8
	err := t.q.QueryRow(ctx, `
		SELECT id, customer_id, amount, additional_amount, notes, recorded_at, invoice_id
		FROM customer_receivables WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CustomerID, &rec.Amount, &rec.AdditionalAmount, &rec.Notes, &rec.Date, &invoiceID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Receivable{}, fmt.Errorf("%w: receivable %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return Receivable{}, err
	}
	if invoiceID.Valid {
		rec.InvoiceID = &invoiceID.Int64
	}
	return rec, nil
}

func (t *txRepo) UpdateReceivable(ctx context.Context, rec Receivable) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE customer_receivables
		SET amount = $2, additional_amount = $3, notes = $4
		WHERE id = $1`,
		rec.ID, rec.Amount, rec.AdditionalAmount, rec.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: receivable %d", shared.ErrNotFound, rec.ID)
	}
	return nil
}

func (t *txRepo) DeleteReceivable(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM customer_receivables WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: receivable %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) ListReceivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	return listReceivables(ctx, t.q, customerID)
}

func (t *txRepo) SetCustomerBalance(ctx context.Context, customerID int64, balance float64) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE customers SET balance = $2, updated_at = NOW() WHERE id = $1`,
		customerID, balance)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, customerID)
	}
	return nil
}

func (t *txRepo) ListCustomerInvoiceIDs(ctx context.Context, customerID int64) ([]int64, error) {
	rows, err := t.q.Query(ctx, `SELECT id FROM invoices WHERE customer_id = $1 ORDER BY id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (t *txRepo) SetInvoiceStatus(ctx context.Context, invoiceID int64, status PaymentStatus) error {
	_, err := t.q.Exec(ctx, `UPDATE invoices SET payment_status = $2 WHERE id = $1`, invoiceID, string(status))
	return err
}

func (t *txRepo) GetInvoiceRef(ctx context.Context, invoiceID int64) (InvoiceRef, error) {
	var ref InvoiceRef
	var customerID pgtype.Int8
	err := t.q.QueryRow(ctx,
		`SELECT id, customer_id, total_amount FROM invoices WHERE id = $1`, invoiceID,
	).Scan(&ref.ID, &customerID, &ref.TotalAmount)
	if errors.Is(err, pgx.ErrNoRows) {
		return InvoiceRef{}, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	if err != nil {
		return InvoiceRef{}, err
	}
	if customerID.Valid {
		ref.CustomerID = &customerID.Int64
	}
	return ref, nil
}

func (t *txRepo) AttachInvoice(ctx context.Context, invoiceID, customerID int64, customerName string) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE invoices SET customer_id = $2, customer_name = $3 WHERE id = $1`,
		invoiceID, customerID, customerName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	return nil
}

func (t *txRepo) DetachInvoice(ctx context.Context, invoiceID int64) error {
	_, err := t.q.Exec(ctx, `
		UPDATE invoices
		SET customer_id = NULL, customer_name = NULL, payment_status = $2
		WHERE id = $1`,
		invoiceID, string(StatusPending))
	return err
}

func listTransactions(ctx context.Context, q querier, customerID int64) ([]Transaction, error) {
	rows, err := q.Query(ctx, `
		SELECT id, customer_id, occurred_at, amount, kind, method, reference, notes
		FROM customer_transactions
		WHERE customer_id = $1
		ORDER BY occurred_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Transaction
	for rows.Next() {
		var rec Transaction
		var kind string
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.Date, &rec.Amount, &kind, &rec.Method, &rec.Reference, &rec.Notes); err != nil {
			return nil, err
		}
		rec.Kind = TransactionKind(kind)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func listReceivables(ctx context.Context, q querier, customerID int64) ([]Receivable, error) {
	rows, err := q.Query(ctx, `
		SELECT id, customer_id, amount, additional_amount, notes, recorded_at, invoice_id
		FROM customer_receivables
		WHERE customer_id = $1
		ORDER BY recorded_at DESC, id DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Receivable
	for rows.Next() {
		var rec Receivable
		var invoiceID pgtype.Int8
		if err := rows.Scan(&rec.ID, &rec.CustomerID, &rec.Amount, &rec.AdditionalAmount, &rec.Notes, &rec.Date, &invoiceID); err != nil {
			return nil, err
		}
		if invoiceID.Valid {
			rec.InvoiceID = &invoiceID.Int64
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
