package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopledger/shopledger/internal/shared"
)

const productColumns = `id, item_code, description, COALESCE(local_name, ''), uom, price, stock, restock_level,
	COALESCE(stock_locations, ''), COALESCE(tags, ''), COALESCE(notes, '')`

// Repository provides PostgreSQL backed persistence for products.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO products (item_code, description, local_name, uom, price, stock, restock_level, stock_locations, tags, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING id`,
		p.ItemCode, p.Description, p.LocalName, p.Unit, p.Price, p.Stock, p.RestockLevel, p.Locations, p.Tags, p.Notes,
	).Scan(&id)
	if err != nil {
		return 0, wrapDuplicateCode(err, p.ItemCode)
	}
	return id, nil
}

func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET item_code = $2, description = $3, local_name = $4, uom = $5, price = $6,
			stock = $7, restock_level = $8, stock_locations = $9, tags = $10, notes = $11, updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.ItemCode, p.Description, p.LocalName, p.Unit, p.Price, p.Stock, p.RestockLevel, p.Locations, p.Tags, p.Notes)
	if err != nil {
		return wrapDuplicateCode(err, p.ItemCode)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, err
}

func (r *Repository) GetByItemCode(ctx context.Context, code string) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE item_code = $1`, code)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %s", shared.ErrNotFound, code)
	}
	return p, err
}

func (r *Repository) List(ctx context.Context, search string, limit, offset int) ([]Product, int, error) {
	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE item_code ILIKE $1 OR description ILIKE $1 OR local_name ILIKE $1 OR tags ILIKE $1`
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		fmt.Sprintf(` ORDER BY item_code LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *Repository) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns, id, delta)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, err
}

func (r *Repository) ListBelowRestock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+` FROM products
		WHERE stock <= restock_level
		ORDER BY stock - restock_level, item_code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ItemCode, &p.Description, &p.LocalName, &p.Unit, &p.Price,
		&p.Stock, &p.RestockLevel, &p.Locations, &p.Tags, &p.Notes)
	return p, err
}

func wrapDuplicateCode(err error, code string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: item code %s already exists", shared.ErrConflict, code)
	}
	return err
}
