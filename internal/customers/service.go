package customers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopledger/shopledger/internal/ledger"
	"github.com/shopledger/shopledger/internal/shared"
)

// TxRepository groups the customer mutations that must share one transaction.
type TxRepository interface {
	InsertCustomer(ctx context.Context, c Customer) (int64, error)
	UpdateCustomer(ctx context.Context, c Customer) error
	DeleteCustomer(ctx context.Context, id int64) error
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	CountInvoices(ctx context.Context, customerID int64) (int, error)
	DeleteTransactions(ctx context.Context, customerID int64) error
	DeleteReceivables(ctx context.Context, customerID int64) error
}

// RepositoryPort abstracts persistence for the customer service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetCustomer(ctx context.Context, id int64) (Customer, error)
	ListCustomers(ctx context.Context, search string, limit, offset int) ([]Customer, int, error)
}

// LedgerPort supplies account activity for the detail view.
type LedgerPort interface {
	ListTransactions(ctx context.Context, customerID int64) ([]ledger.Transaction, error)
	ListReceivables(ctx context.Context, customerID int64) ([]ledger.Receivable, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Detail is a customer with its account activity, newest first.
type Detail struct {
	Customer     Customer             `json:"customer"`
	Transactions []ledger.Transaction `json:"transactions"`
	Receivables  []ledger.Receivable  `json:"receivables"`
}

// Service owns the customer registry and the deletion guard.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger LedgerPort, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

// Create registers a customer. Name is the only required field.
func (s *Service) Create(ctx context.Context, input CreateInput) (Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Customer{}, fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}

	c := Customer{
		Name:    strings.TrimSpace(input.Name),
		Phone:   input.Phone,
		Email:   input.Email,
		Address: input.Address,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertCustomer(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id
		return nil
	})
	if err != nil {
		return Customer{}, err
	}

	s.recordAudit(ctx, input.ActorID, "customers:create", c.ID, map[string]any{"name": c.Name})
	return c, nil
}

// Update edits a customer's contact details.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Customer, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Customer{}, fmt.Errorf("%w: customer name required", shared.ErrValidation)
	}

	var updated Customer
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		c, err := tx.GetCustomer(ctx, id)
		if err != nil {
			return err
		}
		c.Name = strings.TrimSpace(input.Name)
		c.Phone = input.Phone
		c.Email = input.Email
		c.Address = input.Address
		if err := tx.UpdateCustomer(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return Customer{}, err
	}

	s.recordAudit(ctx, input.ActorID, "customers:update", id, map[string]any{"name": updated.Name})
	return updated, nil
}

// Delete removes a customer and cascades its ledger records. A customer that
// still owns invoices cannot be deleted; unlink or delete the invoices first.
func (s *Service) Delete(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetCustomer(ctx, id); err != nil {
			return err
		}
		n, err := tx.CountInvoices(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("%w: customer %d has %d linked invoices", shared.ErrConflict, id, n)
		}
		if err := tx.DeleteTransactions(ctx, id); err != nil {
			return err
		}
		if err := tx.DeleteReceivables(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCustomer(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "customers:delete", id, nil)
	return nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

// GetDetail returns a customer with its account activity.
func (s *Service) GetDetail(ctx context.Context, id int64) (Detail, error) {
	c, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	transactions, err := s.ledger.ListTransactions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	receivables, err := s.ledger.ListReceivables(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Customer: c, Transactions: transactions, Receivables: receivables}, nil
}

// List returns customers matching the search term with the total count.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, int, error) {
	return s.repo.ListCustomers(ctx, strings.TrimSpace(search), limit, offset)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, customerID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "customer",
		EntityID: strconv.FormatInt(customerID, 10),
		Meta:     meta,
	})
}
