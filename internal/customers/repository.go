package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/platform/db"
	"github.com/shopledger/shopledger/internal/shared"
)

// Repository provides PostgreSQL backed persistence for customers.
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

// GetCustomer loads one customer.
func (r *Repository) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return getCustomer(ctx, r.pool, id)
}

// ListCustomers returns customers matching the search term, name-ordered.
func (r *Repository) ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), balance, created_at, updated_at
		FROM customers` + where + fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

type txRepo struct {
	q querier
}

func (t *txRepo) InsertCustomer(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := t.q.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, address, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, NOW(), NOW())
		RETURNING id`,
		c.Name, c.Phone, c.Email, c.Address,
	).Scan(&id)
	return id, err
}

func (t *txRepo) UpdateCustomer(ctx context.Context, c Customer) error {
	tag, err := t.q.Exec(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, updated_at = NOW()
		WHERE id = $1`,
		c.ID, c.Name, c.Phone, c.Email, c.Address)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, c.ID)
	}
	return nil
}

func (t *txRepo) DeleteCustomer(ctx context.Context, id int64) error {
	tag, err := t.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return nil
}

func (t *txRepo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	return getCustomer(ctx, t.q, id)
}

func (t *txRepo) CountInvoices(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := t.q.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE customer_id = $1`, customerID).Scan(&n)
	return n, err
}

func (t *txRepo) DeleteTransactions(ctx context.Context, customerID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM customer_transactions WHERE customer_id = $1`, customerID)
	return err
}

func (t *txRepo) DeleteReceivables(ctx context.Context, customerID int64) error {
	_, err := t.q.Exec(ctx, `DELETE FROM customer_receivables WHERE customer_id = $1`, customerID)
	return err
}

func getCustomer(ctx context.Context, q querier, id int64) (Customer, error) {
	row := q.QueryRow(ctx, `
		SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(address, ''), balance, created_at, updated_at
		FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, err
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.Balance, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
