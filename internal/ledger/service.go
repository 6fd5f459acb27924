package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopledger/shopledger/internal/shared"
)

// InvoiceRef is the slice of an invoice the ledger needs for linking and
// reconciliation.
type InvoiceRef struct {
	ID          int64
	CustomerID  *int64
	TotalAmount float64
}

// TxRepository exposes the ledger mutations that must share one transaction.
type TxRepository interface {
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
	CustomerName(ctx context.Context, customerID int64) (string, error)

	InsertTransaction(ctx context.Context, tx Transaction) (int64, error)
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error)

	InsertReceivable(ctx context.Context, rcv Receivable) (int64, error)
	GetReceivable(ctx context.Context, id int64) (Receivable, error)
	UpdateReceivable(ctx context.Context, rcv Receivable) error
	DeleteReceivable(ctx context.Context, id int64) error
	ListReceivables(ctx context.Context, customerID int64) ([]Receivable, error)

	SetCustomerBalance(ctx context.Context, customerID int64, balance float64) error
	ListCustomerInvoiceIDs(ctx context.Context, customerID int64) ([]int64, error)
	SetInvoiceStatus(ctx context.Context, invoiceID int64, status PaymentStatus) error

	GetInvoiceRef(ctx context.Context, invoiceID int64) (InvoiceRef, error)
	AttachInvoice(ctx context.Context, invoiceID, customerID int64, customerName string) error
	DetachInvoice(ctx context.Context, invoiceID int64) error
}

// RepositoryPort abstracts persistence for the ledger service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListTransactions(ctx context.Context, customerID int64) ([]Transaction, error)
	ListReceivables(ctx context.Context, customerID int64) ([]Receivable, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the customer ledger: transactions, receivables, the derived
// balance and the derived invoice payment status. Balance and status are
// recomputed from source rows inside the same transaction as every mutation;
// they are never patched incrementally.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// RecordTransactionInput describes a new payment or refund.
type RecordTransactionInput struct {
	CustomerID int64
	Amount     float64
	Kind       TransactionKind
	Method     string
	Reference  string
	Notes      string
	ActorID    int64
}

// RecordTransaction stores a ledger movement and refreshes the derived
// fields of the owning customer.
func (s *Service) RecordTransaction(ctx context.Context, input RecordTransactionInput) (Transaction, error) {
	if input.CustomerID == 0 {
		return Transaction{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return Transaction{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if !input.Kind.Valid() {
		return Transaction{}, fmt.Errorf("%w: unknown transaction kind %q", shared.ErrValidation, input.Kind)
	}
	if input.Kind == KindPayment && strings.TrimSpace(input.Method) == "" {
		return Transaction{}, fmt.Errorf("%w: payment method required", shared.ErrValidation)
	}

	record := Transaction{
		CustomerID: input.CustomerID,
		Date:       time.Now().UTC(),
		Amount:     input.Amount,
		Kind:       input.Kind,
		Method:     input.Method,
		Reference:  input.Reference,
		Notes:      input.Notes,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: customer %d", shared.ErrNotFound, input.CustomerID)
		}
		id, err := tx.InsertTransaction(ctx, record)
		if err != nil {
			return err
		}
		record.ID = id
		return s.refresh(ctx, tx, input.CustomerID)
	})
	if err != nil {
		return Transaction{}, err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:transaction:create", "customer_transaction", record.ID, map[string]any{
		"customer_id": record.CustomerID,
		"amount":      record.Amount,
		"kind":        string(record.Kind),
	})
	return record, nil
}

// UpdateTransactionInput carries editable transaction fields.
type UpdateTransactionInput struct {
	Amount    float64
	Method    string
	Reference string
	Notes     string
	ActorID   int64
}

// UpdateTransaction edits an existing ledger movement. The kind is not
// editable; callers delete and re-record to change it.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, input UpdateTransactionInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}

	var customerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		customerID = record.CustomerID
		record.Amount = input.Amount
		record.Method = input.Method
		record.Reference = input.Reference
		record.Notes = input.Notes
		if err := tx.UpdateTransaction(ctx, record); err != nil {
			return err
		}
		return s.refresh(ctx, tx, customerID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:transaction:update", "customer_transaction", id, map[string]any{
		"customer_id": customerID,
		"amount":      input.Amount,
	})
	return nil
}

// DeleteTransaction removes a ledger movement and refreshes derived fields.
func (s *Service) DeleteTransaction(ctx context.Context, id int64, actorID int64) error {
	var customerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		customerID = record.CustomerID
		if err := tx.DeleteTransaction(ctx, id); err != nil {
			return err
		}
		return s.refresh(ctx, tx, customerID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "ledger:transaction:delete", "customer_transaction", id, map[string]any{
		"customer_id": customerID,
	})
	return nil
}

// RecordReceivableInput describes a new obligation.
type RecordReceivableInput struct {
	CustomerID       int64
	Amount           float64
	AdditionalAmount float64
	Notes            string
	InvoiceID        *int64
	ActorID          int64
}

// RecordReceivable stores an obligation against the customer.
func (s *Service) RecordReceivable(ctx context.Context, input RecordReceivableInput) (Receivable, error) {
	if input.CustomerID == 0 {
		return Receivable{}, fmt.Errorf("%w: customer id required", shared.ErrValidation)
	}
	if input.Amount <= 0 {
		return Receivable{}, fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Notes) == "" {
		return Receivable{}, fmt.Errorf("%w: notes required", shared.ErrValidation)
	}

	record := Receivable{
		CustomerID:       input.CustomerID,
		Amount:           input.Amount,
		AdditionalAmount: input.AdditionalAmount,
		Notes:            input.Notes,
		Date:             time.Now().UTC(),
		InvoiceID:        input.InvoiceID,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: customer %d", shared.ErrNotFound, input.CustomerID)
		}
		if input.InvoiceID != nil {
			if _, err := tx.GetInvoiceRef(ctx, *input.InvoiceID); err != nil {
				return err
			}
		}
		id, err := tx.InsertReceivable(ctx, record)
		if err != nil {
			return err
		}
		record.ID = id
		return s.refresh(ctx, tx, input.CustomerID)
	})
	if err != nil {
		return Receivable{}, err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:receivable:create", "customer_receivable", record.ID, map[string]any{
		"customer_id": record.CustomerID,
		"amount":      record.Amount,
	})
	return record, nil
}

// UpdateReceivableInput carries editable receivable fields.
type UpdateReceivableInput struct {
	Amount           float64
	AdditionalAmount float64
	Notes            string
	ActorID          int64
}

// UpdateReceivable edits an obligation and refreshes derived fields.
func (s *Service) UpdateReceivable(ctx context.Context, id int64, input UpdateReceivableInput) error {
	if input.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Notes) == "" {
		return fmt.Errorf("%w: notes required", shared.ErrValidation)
	}

	var customerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := tx.GetReceivable(ctx, id)
		if err != nil {
			return err
		}
		customerID = record.CustomerID
		record.Amount = input.Amount
		record.AdditionalAmount = input.AdditionalAmount
		record.Notes = input.Notes
		if err := tx.UpdateReceivable(ctx, record); err != nil {
			return err
		}
		return s.refresh(ctx, tx, customerID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:receivable:update", "customer_receivable", id, map[string]any{
		"customer_id": customerID,
		"amount":      input.Amount,
	})
	return nil
}

// DeleteReceivable removes an obligation. A receivable that is linked to an
// invoice unlinks that invoice: the invoice loses its customer reference and
// its status resets to pending.
func (s *Service) DeleteReceivable(ctx context.Context, id int64, actorID int64) error {
	var customerID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		record, err := tx.GetReceivable(ctx, id)
		if err != nil {
			return err
		}
		customerID = record.CustomerID
		if record.InvoiceID != nil {
			if err := tx.DetachInvoice(ctx, *record.InvoiceID); err != nil {
				return err
			}
		}
		if err := tx.DeleteReceivable(ctx, id); err != nil {
			return err
		}
		return s.refresh(ctx, tx, customerID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "ledger:receivable:delete", "customer_receivable", id, map[string]any{
		"customer_id": customerID,
	})
	return nil
}

// LinkInvoiceInput connects an existing invoice to a customer account.
type LinkInvoiceInput struct {
	InvoiceID        int64
	CustomerID       int64
	AdditionalAmount float64
	Notes            string
	ActorID          int64
}

// LinkInvoice attaches an invoice to a customer and records a receivable for
// the invoice total. Walk-in invoices become account sales this way.
func (s *Service) LinkInvoice(ctx context.Context, input LinkInvoiceInput) error {
	if input.InvoiceID == 0 || input.CustomerID == 0 {
		return fmt.Errorf("%w: invoice and customer ids required", shared.ErrValidation)
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceRef(ctx, input.InvoiceID)
		if err != nil {
			return err
		}
		name, err := tx.CustomerName(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if err := tx.AttachInvoice(ctx, input.InvoiceID, input.CustomerID, name); err != nil {
			return err
		}
		rcv := Receivable{
			CustomerID:       input.CustomerID,
			Amount:           inv.TotalAmount,
			AdditionalAmount: input.AdditionalAmount,
			Notes:            input.Notes,
			Date:             time.Now().UTC(),
			InvoiceID:        &input.InvoiceID,
		}
		if _, err := tx.InsertReceivable(ctx, rcv); err != nil {
			return err
		}
		return s.refresh(ctx, tx, input.CustomerID)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, input.ActorID, "ledger:invoice:link", "invoice", input.InvoiceID, map[string]any{
		"customer_id": input.CustomerID,
	})
	return nil
}

// Transactions lists a customer's ledger movements, newest first.
func (s *Service) Transactions(ctx context.Context, customerID int64) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, customerID)
}

// Receivables lists a customer's obligations.
func (s *Service) Receivables(ctx context.Context, customerID int64) ([]Receivable, error) {
	return s.repo.ListReceivables(ctx, customerID)
}

// refresh recomputes the customer's balance of record and reapplies the
// payment status to every invoice the customer owns, all inside the caller's
// transaction. The aggregation is customer-wide, so the status is computed
// once and applied to each invoice.
func (s *Service) refresh(ctx context.Context, tx TxRepository, customerID int64) error {
	receivables, err := tx.ListReceivables(ctx, customerID)
	if err != nil {
		return err
	}
	transactions, err := tx.ListTransactions(ctx, customerID)
	if err != nil {
		return err
	}

	if err := tx.SetCustomerBalance(ctx, customerID, Balance(receivables, transactions)); err != nil {
		return err
	}

	invoiceIDs, err := tx.ListCustomerInvoiceIDs(ctx, customerID)
	if err != nil {
		return err
	}
	if len(invoiceIDs) == 0 {
		return nil
	}
	status := Reconcile(receivables, transactions)
	for _, id := range invoiceIDs {
		if err := tx.SetInvoiceStatus(ctx, id, status); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
}
