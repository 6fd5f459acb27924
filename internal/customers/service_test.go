package customers

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/ledger"
	"github.com/shopledger/shopledger/internal/shared"
)

type memoryRepo struct {
	customers    map[int64]Customer
	invoices     map[int64]int64 // invoice id -> customer id
	transactions map[int64]int64 // transaction id -> customer id
	receivables  map[int64]int64 // receivable id -> customer id
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers:    make(map[int64]Customer),
		invoices:     make(map[int64]int64),
		transactions: make(map[int64]int64),
		receivables:  make(map[int64]int64),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) InsertCustomer(ctx context.Context, c Customer) (int64, error) {
	r.nextID++
	c.ID = r.nextID
	r.customers[c.ID] = c
	return c.ID, nil
}

func (r *memoryRepo) UpdateCustomer(ctx context.Context, c Customer) error {
	if _, ok := r.customers[c.ID]; !ok {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, c.ID)
	}
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) DeleteCustomer(ctx context.Context, id int64) error {
	if _, ok := r.customers[id]; !ok {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	delete(r.customers, id)
	return nil
}

func (r *memoryRepo) GetCustomer(ctx context.Context, id int64) (Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return Customer{}, fmt.Errorf("%w: customer %d", shared.ErrNotFound, id)
	}
	return c, nil
}

func (r *memoryRepo) CountInvoices(ctx context.Context, customerID int64) (int, error) {
	n := 0
	for _, owner := range r.invoices {
		if owner == customerID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) DeleteTransactions(ctx context.Context, customerID int64) error {
	for id, owner := range r.transactions {
		if owner == customerID {
			delete(r.transactions, id)
		}
	}
	return nil
}

func (r *memoryRepo) DeleteReceivables(ctx context.Context, customerID int64) error {
	for id, owner := range r.receivables {
		if owner == customerID {
			delete(r.receivables, id)
		}
	}
	return nil
}

func (r *memoryRepo) ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	var out []Customer
	for _, c := range r.customers {
		out = append(out, c)
	}
	return out, len(out), nil
}

type stubLedger struct{}

func (stubLedger) ListTransactions(ctx context.Context, customerID int64) ([]ledger.Transaction, error) {
	return nil, nil
}

func (stubLedger) ListReceivables(ctx context.Context, customerID int64) ([]ledger.Receivable, error) {
	return nil, nil
}

func TestCreateRequiresName(t *testing.T) {
	svc := NewService(newMemoryRepo(), stubLedger{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{Name: "   "})
	require.ErrorIs(t, err, shared.ErrValidation)

	c, err := svc.Create(context.Background(), CreateInput{Name: "  Lakshmi Stores  "})
	require.NoError(t, err)
	require.Equal(t, "Lakshmi Stores", c.Name)
	require.NotZero(t, c.ID)
}

func TestDeleteBlockedByInvoices(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, stubLedger{}, nil)

	c, err := svc.Create(context.Background(), CreateInput{Name: "Kumar Traders"})
	require.NoError(t, err)
	repo.invoices[10] = c.ID
	repo.transactions[20] = c.ID

	err = svc.Delete(context.Background(), c.ID, 0)
	require.ErrorIs(t, err, shared.ErrConflict)

	// nothing was removed
	_, err = svc.Get(context.Background(), c.ID)
	require.NoError(t, err)
	require.Contains(t, repo.transactions, int64(20))
}

func TestDeleteCascadesLedgerRecords(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, stubLedger{}, nil)

	keep, err := svc.Create(context.Background(), CreateInput{Name: "Keep Me"})
	require.NoError(t, err)
	gone, err := svc.Create(context.Background(), CreateInput{Name: "Delete Me"})
	require.NoError(t, err)

	repo.transactions[1] = gone.ID
	repo.transactions[2] = keep.ID
	repo.receivables[3] = gone.ID
	repo.receivables[4] = keep.ID

	require.NoError(t, svc.Delete(context.Background(), gone.ID, 0))

	_, err = svc.Get(context.Background(), gone.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NotContains(t, repo.transactions, int64(1))
	require.NotContains(t, repo.receivables, int64(3))

	// the other customer's records are untouched
	require.Contains(t, repo.transactions, int64(2))
	require.Contains(t, repo.receivables, int64(4))
}

func TestDeleteMissingCustomer(t *testing.T) {
	svc := NewService(newMemoryRepo(), stubLedger{}, nil)
	err := svc.Delete(context.Background(), 42, 0)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateKeepsBalance(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, stubLedger{}, nil)

	c, err := svc.Create(context.Background(), CreateInput{Name: "Priya Agencies"})
	require.NoError(t, err)

	stored := repo.customers[c.ID]
	stored.Balance = 350.50
	repo.customers[c.ID] = stored

	updated, err := svc.Update(context.Background(), c.ID, UpdateInput{
		Name:  "Priya Agencies Pvt Ltd",
		Phone: "98400 12345",
	})
	require.NoError(t, err)
	require.Equal(t, "Priya Agencies Pvt Ltd", updated.Name)
	require.Equal(t, 350.50, updated.Balance)
}
