package products

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

type memoryRepo struct {
	products map[int64]Product
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) Insert(ctx context.Context, p Product) (int64, error) {
	for _, existing := range r.products {
		if existing.ItemCode == p.ItemCode {
			return 0, fmt.Errorf("%w: item code %s already exists", shared.ErrConflict, p.ItemCode)
		}
	}
	r.nextID++
	p.ID = r.nextID
	r.products[p.ID] = p
	return p.ID, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Product) error {
	if _, ok := r.products[p.ID]; !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
	}
	for id, existing := range r.products {
		if id != p.ID && existing.ItemCode == p.ItemCode {
			return fmt.Errorf("%w: item code %s already exists", shared.ErrConflict, p.ItemCode)
		}
	}
	r.products[p.ID] = p
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	return p, nil
}

func (r *memoryRepo) GetByItemCode(ctx context.Context, code string) (Product, error) {
	for _, p := range r.products {
		if p.ItemCode == code {
			return p, nil
		}
	}
	return Product{}, fmt.Errorf("%w: product %s", shared.ErrNotFound, code)
}

func (r *memoryRepo) List(ctx context.Context, search string, limit, offset int) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, len(out), nil
}

func (r *memoryRepo) AdjustStock(ctx context.Context, id int64, delta int) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
	}
	p.Stock += delta
	r.products[id] = p
	return p, nil
}

func (r *memoryRepo) ListBelowRestock(ctx context.Context) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.NeedsRestock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func validInput(code string) Input {
	return Input{
		ItemCode:    code,
		Description: "Rice 5kg bag",
		Unit:        "bag",
		Price:       420,
		Stock:       25,
	}
}

func TestCreateValidatesRequiredFields(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	cases := map[string]Input{
		"missing code": {Description: "x", Unit: "pcs", Price: 1},
		"missing desc": {ItemCode: "A1", Unit: "pcs", Price: 1},
		"missing unit": {ItemCode: "A1", Description: "x", Price: 1},
		"bad price":    {ItemCode: "A1", Description: "x", Unit: "pcs", Price: -1},
	}
	for name, input := range cases {
		_, err := svc.Create(context.Background(), input)
		require.ErrorIs(t, err, shared.ErrValidation, name)
	}
}

func TestCreateRejectsDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), validInput("RICE5"))
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validInput("RICE5"))
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestAdjustStockAllowsNegative(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	p, err := svc.Create(context.Background(), validInput("RICE5"))
	require.NoError(t, err)

	got, err := svc.AdjustStock(context.Background(), p.ID, -30, 0)
	require.NoError(t, err)
	require.Equal(t, -5, got.Stock)

	_, err = svc.AdjustStock(context.Background(), p.ID, 0, 0)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRestockReport(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	low := validInput("LOW1")
	low.Stock = 3
	low.RestockLevel = 5
	_, err := svc.Create(context.Background(), low)
	require.NoError(t, err)

	ok := validInput("OK1")
	ok.Stock = 50
	ok.RestockLevel = 5
	_, err = svc.Create(context.Background(), ok)
	require.NoError(t, err)

	report, err := svc.RestockReport(context.Background())
	require.NoError(t, err)
	require.Len(t, report, 1)
	require.Equal(t, "LOW1", report[0].ItemCode)
}

func TestGetByItemCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	created, err := svc.Create(context.Background(), validInput("OIL-1L"))
	require.NoError(t, err)

	found, err := svc.GetByItemCode(context.Background(), "  OIL-1L  ")
	require.NoError(t, err)
	require.Equal(t, created.ID, found.ID)

	_, err = svc.GetByItemCode(context.Background(), "NOPE")
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetByItemCode(context.Background(), "   ")
	require.ErrorIs(t, err, shared.ErrValidation)
}
