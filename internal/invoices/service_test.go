package invoices

import (
	"context"
	"fmt"
	"maps"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

type memoryRepo struct {
	invoices map[int64]Invoice
	items    map[int64][]LineItem
	products map[int64]int
	counters map[string]int
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		invoices: make(map[int64]Invoice),
		items:    make(map[int64][]LineItem),
		products: make(map[int64]int),
		counters: make(map[string]int),
	}
}

// WithTx snapshots the store and restores it when fn fails, mirroring a
// database rollback.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	invoices := maps.Clone(r.invoices)
	items := maps.Clone(r.items)
	products := maps.Clone(r.products)
	counters := maps.Clone(r.counters)
	nextID := r.nextID

	if err := fn(ctx, r); err != nil {
		r.invoices = invoices
		r.items = items
		r.products = products
		r.counters = counters
		r.nextID = nextID
		return err
	}
	return nil
}

func (r *memoryRepo) NextOrderNumber(ctx context.Context, date time.Time) (int, error) {
	key := date.Format("2006-01-02")
	r.counters[key]++
	return r.counters[key], nil
}

func (r *memoryRepo) InsertInvoice(ctx context.Context, inv Invoice) (int64, error) {
	r.nextID++
	inv.ID = r.nextID
	inv.Items = nil
	r.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (r *memoryRepo) UpdateInvoiceHeader(ctx context.Context, inv Invoice) error {
	if _, ok := r.invoices[inv.ID]; !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, inv.ID)
	}
	inv.Items = nil
	r.invoices[inv.ID] = inv
	return nil
}

func (r *memoryRepo) DeleteInvoice(ctx context.Context, id int64) error {
	if _, ok := r.invoices[id]; !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	delete(r.invoices, id)
	return nil
}

func (r *memoryRepo) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, id)
	}
	return inv, nil
}

func (r *memoryRepo) ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error) {
	return r.items[invoiceID], nil
}

func (r *memoryRepo) InsertLineItems(ctx context.Context, invoiceID int64, items []LineItem) error {
	stored := make([]LineItem, len(items))
	copy(stored, items)
	for i := range stored {
		r.nextID++
		stored[i].ID = r.nextID
	}
	r.items[invoiceID] = append(r.items[invoiceID], stored...)
	return nil
}

func (r *memoryRepo) DeleteLineItems(ctx context.Context, invoiceID int64) error {
	delete(r.items, invoiceID)
	return nil
}

func (r *memoryRepo) GetProductForUpdate(ctx context.Context, productID int64) (ProductRef, error) {
	stock, ok := r.products[productID]
	if !ok {
		return ProductRef{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	return ProductRef{ID: productID, Stock: stock}, nil
}

func (r *memoryRepo) AdjustProductStock(ctx context.Context, productID int64, delta int) error {
	if _, ok := r.products[productID]; !ok {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, productID)
	}
	r.products[productID] += delta
	return nil
}

func (r *memoryRepo) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	var out []Invoice
	for _, inv := range r.invoices {
		out = append(out, inv)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Summarize(ctx context.Context, from, to time.Time) ([]DaySummary, error) {
	byDate := make(map[time.Time]*DaySummary)
	for _, inv := range r.invoices {
		if inv.Date.Before(from) || inv.Date.After(to) {
			continue
		}
		day, ok := byDate[inv.Date]
		if !ok {
			day = &DaySummary{Date: inv.Date}
			byDate[inv.Date] = day
		}
		day.InvoiceCount++
		day.ItemCount += inv.TotalItems
		day.TotalAmount += inv.TotalAmount
	}
	var out []DaySummary
	for _, day := range byDate {
		out = append(out, *day)
	}
	return out, nil
}

func testDate() time.Time {
	return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
}

func TestCreateDecrementsStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 50
	repo.products[2] = 8
	svc := NewService(repo, nil, nil, nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		Date: testDate(),
		Items: []LineInput{
			{ProductID: 1, Quantity: 5, Price: 10, Amount: 50},
			{ProductID: 2, Quantity: 10, Price: 3, Amount: 30},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "001", inv.OrderNumber)
	require.Equal(t, 80.0, inv.TotalAmount)
	require.Equal(t, 15, inv.TotalItems)

	require.Equal(t, 45, repo.products[1])
	// oversell leaves the count negative rather than failing
	require.Equal(t, -2, repo.products[2])
}

func TestOrderNumbersAreContiguousPerDay(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 100
	svc := NewService(repo, nil, nil, nil)

	var numbers []string
	for i := 0; i < 3; i++ {
		inv, err := svc.Create(context.Background(), CreateInput{
			Date:  testDate(),
			Items: []LineInput{{ProductID: 1, Quantity: 1, Price: 2, Amount: 2}},
		})
		require.NoError(t, err)
		numbers = append(numbers, inv.OrderNumber)
	}
	require.Equal(t, []string{"001", "002", "003"}, numbers)

	// a different day starts its own sequence
	inv, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate().AddDate(0, 0, 1),
		Items: []LineInput{{ProductID: 1, Quantity: 1, Price: 2, Amount: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, "001", inv.OrderNumber)
}

func TestDailySequenceExhaustion(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 10
	repo.counters[testDate().Format("2006-01-02")] = 999
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 1, Price: 2, Amount: 2}},
	})
	require.ErrorIs(t, err, shared.ErrConflict)
	require.Empty(t, repo.invoices)
	require.Equal(t, 10, repo.products[1])
}

func TestCreateMissingProductRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 50
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Date: testDate(),
		Items: []LineInput{
			{ProductID: 1, Quantity: 5, Price: 10, Amount: 50},
			{ProductID: 99, Quantity: 1, Price: 1, Amount: 1},
		},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, err.Error(), "99")

	require.Empty(t, repo.invoices)
	require.Equal(t, 50, repo.products[1])
	require.Equal(t, 0, repo.counters[testDate().Format("2006-01-02")])
}

func TestUpdateRestoresThenReapplies(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 50
	repo.products[2] = 30
	svc := NewService(repo, nil, nil, nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 10, Price: 5, Amount: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, 40, repo.products[1])

	updated, err := svc.Update(context.Background(), inv.ID, UpdateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 2, Quantity: 4, Price: 6, Amount: 24}},
	})
	require.NoError(t, err)
	require.Equal(t, 50, repo.products[1])
	require.Equal(t, 26, repo.products[2])
	require.Equal(t, 24.0, updated.TotalAmount)
	require.Equal(t, inv.OrderNumber, updated.OrderNumber)
}

func TestUpdateMissingProductRollsBackRestore(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 50
	svc := NewService(repo, nil, nil, nil)

	inv, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 10, Price: 5, Amount: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, 40, repo.products[1])

	_, err = svc.Update(context.Background(), inv.ID, UpdateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 77, Quantity: 1, Price: 1, Amount: 1}},
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Contains(t, err.Error(), "77")

	// the interim stock restore rolled back with everything else
	require.Equal(t, 40, repo.products[1])
	require.Len(t, repo.items[inv.ID], 1)
}

func TestDeleteRestoreStockIsOptional(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 50
	svc := NewService(repo, nil, nil, nil)

	first, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 10, Price: 5, Amount: 50}},
	})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 10, Price: 5, Amount: 50}},
	})
	require.NoError(t, err)
	require.Equal(t, 30, repo.products[1])

	require.NoError(t, svc.Delete(context.Background(), first.ID, true, 0))
	require.Equal(t, 40, repo.products[1])

	require.NoError(t, svc.Delete(context.Background(), second.ID, false, 0))
	require.Equal(t, 40, repo.products[1])

	require.Empty(t, repo.invoices)
	require.Empty(t, repo.items[first.ID])
	require.Empty(t, repo.items[second.ID])
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{Date: testDate()})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 0, Price: 1, Amount: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), CreateInput{
		Items: []LineInput{{ProductID: 1, Quantity: 1, Price: 1, Amount: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestSummaryFormatsTotals(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = 10000
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Date:  testDate(),
		Items: []LineInput{{ProductID: 1, Quantity: 500, Price: 25, Amount: 12500}},
	})
	require.NoError(t, err)

	days, err := svc.Summary(context.Background(), testDate(), testDate())
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.Equal(t, 1, days[0].InvoiceCount)
	require.Equal(t, 500, days[0].ItemCount)
	require.Equal(t, "12,500.00", days[0].FormattedTotal)
}
