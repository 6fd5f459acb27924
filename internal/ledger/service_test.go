package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

type memCustomer struct {
	name    string
	balance float64
}

type memInvoice struct {
	customerID   *int64
	customerName string
	total        float64
	status       PaymentStatus
}

type memoryRepo struct {
	customers    map[int64]*memCustomer
	transactions map[int64]Transaction
	receivables  map[int64]Receivable
	invoices     map[int64]*memInvoice
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		customers:    make(map[int64]*memCustomer),
		transactions: make(map[int64]Transaction),
		receivables:  make(map[int64]Receivable),
		invoices:     make(map[int64]*memInvoice),
	}
}

func (r *memoryRepo) addCustomer(id int64, name string) {
	r.customers[id] = &memCustomer{name: name}
}

func (r *memoryRepo) addInvoice(id int64, customerID *int64, total float64) {
	inv := &memInvoice{customerID: customerID, total: total, status: StatusPending}
	if customerID != nil {
		inv.customerName = r.customers[*customerID].name
	}
	r.invoices[id] = inv
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	_, ok := r.customers[customerID]
	return ok, nil
}

func (r *memoryRepo) CustomerName(ctx context.Context, customerID int64) (string, error) {
	c, ok := r.customers[customerID]
	if !ok {
		return "", fmt.Errorf("%w: customer %d", shared.ErrNotFound, customerID)
	}
	return c.name, nil
}

func (r *memoryRepo) InsertTransaction(ctx context.Context, rec Transaction) (int64, error) {
	r.nextID++
	rec.ID = r.nextID
	r.transactions[rec.ID] = rec
	return rec.ID, nil
}

func (r *memoryRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	rec, ok := r.transactions[id]
	if !ok {
		return Transaction{}, fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	return rec, nil
}

func (r *memoryRepo) UpdateTransaction(ctx context.Context, rec Transaction) error {
	if _, ok := r.transactions[rec.ID]; !ok {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, rec.ID)
	}
	r.transactions[rec.ID] = rec
	return nil
}

func (r *memoryRepo) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := r.transactions[id]; !ok {
		return fmt.Errorf("%w: transaction %d", shared.ErrNotFound, id)
	}
	delete(r.transactions, id)
	return nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	var out []Transaction
	for _, rec := range r.transactions {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) InsertReceivable(ctx context.Context, rec Receivable) (int64, error) {
	r.nextID++
	rec.ID = r.nextID
	r.receivables[rec.ID] = rec
	return rec.ID, nil
}

func (r *memoryRepo) GetReceivable(ctx context.Context, id int64) (Receivable, error) {
	rec, ok := r.receivables[id]
	if !ok {
		return Receivable{}, fmt.Errorf("%w: receivable %d", shared.ErrNotFound, id)
	}
	return rec, nil
}

func (r *memoryRepo) UpdateReceivable(ctx context.Context, rec Receivable) error {
	if _, ok := r.receivables[rec.ID]; !ok {
		return fmt.Errorf("%w: receivable %d", shared.ErrNotFound, rec.ID)
	}
	r.receivables[rec.ID] = rec
	return nil
}

func (r *memoryRepo) DeleteReceivable(ctx context.Context, id int64) error {
	if _, ok := r.receivables[id]; !ok {
		return fmt.Errorf("%w: receivable %d", shared.ErrNotFound, id)
	}
	delete(r.receivables, id)
	return nil
}

func (r *memoryRepo) ListReceivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	var out []Receivable
	for _, rec := range r.receivables {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *memoryRepo) SetCustomerBalance(ctx context.Context, customerID int64, balance float64) error {
	c, ok := r.customers[customerID]
	if !ok {
		return fmt.Errorf("%w: customer %d", shared.ErrNotFound, customerID)
	}
	c.balance = balance
	return nil
}

func (r *memoryRepo) ListCustomerInvoiceIDs(ctx context.Context, customerID int64) ([]int64, error) {
	var ids []int64
	for id, inv := range r.invoices {
		if inv.customerID != nil && *inv.customerID == customerID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memoryRepo) SetInvoiceStatus(ctx context.Context, invoiceID int64, status PaymentStatus) error {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	inv.status = status
	return nil
}

func (r *memoryRepo) GetInvoiceRef(ctx context.Context, invoiceID int64) (InvoiceRef, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return InvoiceRef{}, fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	return InvoiceRef{ID: invoiceID, CustomerID: inv.customerID, TotalAmount: inv.total}, nil
}

func (r *memoryRepo) AttachInvoice(ctx context.Context, invoiceID, customerID int64, customerName string) error {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	id := customerID
	inv.customerID = &id
	inv.customerName = customerName
	return nil
}

func (r *memoryRepo) DetachInvoice(ctx context.Context, invoiceID int64) error {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return fmt.Errorf("%w: invoice %d", shared.ErrNotFound, invoiceID)
	}
	inv.customerID = nil
	inv.customerName = ""
	inv.status = StatusPending
	return nil
}

func TestBalanceRecomputedAfterEveryMutation(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Anand Stores")
	svc := NewService(repo, nil)
	ctx := context.Background()

	rcv, err := svc.RecordReceivable(ctx, RecordReceivableInput{CustomerID: 1, Amount: 500, Notes: "opening due"})
	require.NoError(t, err)
	require.InDelta(t, 500.0, repo.customers[1].balance, 0.001)

	pay, err := svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 300, Kind: KindPayment, Method: "cash"})
	require.NoError(t, err)
	require.InDelta(t, 200.0, repo.customers[1].balance, 0.001)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 50, Kind: KindRefund})
	require.NoError(t, err)
	require.InDelta(t, 250.0, repo.customers[1].balance, 0.001)

	require.NoError(t, svc.UpdateTransaction(ctx, pay.ID, UpdateTransactionInput{Amount: 400, Method: "card"}))
	require.InDelta(t, 150.0, repo.customers[1].balance, 0.001)

	require.NoError(t, svc.DeleteReceivable(ctx, rcv.ID, 0))
	require.InDelta(t, -350.0, repo.customers[1].balance, 0.001)
}

func TestBalanceRounding(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Anand Stores")
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordReceivable(ctx, RecordReceivableInput{CustomerID: 1, Amount: 0.1, Notes: "rounding"})
	require.NoError(t, err)
	_, err = svc.RecordReceivable(ctx, RecordReceivableInput{CustomerID: 1, Amount: 0.2, Notes: "rounding"})
	require.NoError(t, err)

	// 0.1 + 0.2 accumulates float error; the stored balance is the rounded sum.
	require.Equal(t, 0.3, repo.customers[1].balance)
}

func TestStatusFollowsCustomerWideTotals(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Kumar Traders")
	cid := int64(1)
	repo.addInvoice(10, &cid, 500)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordReceivable(ctx, RecordReceivableInput{CustomerID: 1, Amount: 500, Notes: "invoice due"})
	require.NoError(t, err)
	require.Equal(t, StatusPending, repo.invoices[10].status)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 300, Kind: KindPayment, Method: "upi"})
	require.NoError(t, err)
	require.InDelta(t, 200.0, repo.customers[1].balance, 0.001)
	require.Equal(t, StatusPartial, repo.invoices[10].status)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 200, Kind: KindPayment, Method: "cash"})
	require.NoError(t, err)
	require.InDelta(t, 0.0, repo.customers[1].balance, 0.001)
	require.Equal(t, StatusPaid, repo.invoices[10].status)
}

func TestOnePaymentFlipsEveryInvoice(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Kumar Traders")
	cid := int64(1)
	repo.addInvoice(10, &cid, 100)
	repo.addInvoice(11, &cid, 200)
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordReceivable(ctx, RecordReceivableInput{CustomerID: 1, Amount: 300, Notes: "combined due"})
	require.NoError(t, err)
	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 300, Kind: KindPayment, Method: "cash"})
	require.NoError(t, err)

	require.Equal(t, StatusPaid, repo.invoices[10].status)
	require.Equal(t, StatusPaid, repo.invoices[11].status)
}

func TestLinkInvoiceCreatesReceivable(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Kumar Traders")
	repo.addInvoice(10, nil, 750)
	svc := NewService(repo, nil)
	ctx := context.Background()

	err := svc.LinkInvoice(ctx, LinkInvoiceInput{InvoiceID: 10, CustomerID: 1, AdditionalAmount: 25, Notes: "delivery charge"})
	require.NoError(t, err)

	require.NotNil(t, repo.invoices[10].customerID)
	require.Equal(t, "Kumar Traders", repo.invoices[10].customerName)
	require.InDelta(t, 775.0, repo.customers[1].balance, 0.001)
	require.Equal(t, StatusPending, repo.invoices[10].status)
}

func TestDeleteLinkedReceivableUnlinksInvoice(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Kumar Traders")
	repo.addInvoice(10, nil, 400)
	svc := NewService(repo, nil)
	ctx := context.Background()

	require.NoError(t, svc.LinkInvoice(ctx, LinkInvoiceInput{InvoiceID: 10, CustomerID: 1}))

	var rcvID int64
	for id := range repo.receivables {
		rcvID = id
	}
	require.NoError(t, svc.DeleteReceivable(ctx, rcvID, 0))

	require.Nil(t, repo.invoices[10].customerID)
	require.Equal(t, StatusPending, repo.invoices[10].status)
	require.InDelta(t, 0.0, repo.customers[1].balance, 0.001)
}

func TestRecordTransactionValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.addCustomer(1, "Anand Stores")
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: -5, Kind: KindPayment, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 10, Kind: "chargeback"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 1, Amount: 10, Kind: KindPayment})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.RecordTransaction(ctx, RecordTransactionInput{CustomerID: 9, Amount: 10, Kind: KindPayment, Method: "cash"})
	require.ErrorIs(t, err, shared.ErrNotFound)
}
