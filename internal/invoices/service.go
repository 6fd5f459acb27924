package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shopledger/shopledger/internal/shared"
)

// maxDailyOrders caps the 3-digit daily sequence. Creation fails fast once a
// day is exhausted rather than wrapping or widening silently.
const maxDailyOrders = 999

// ProductRef is the slice of a product the stock coupler needs.
type ProductRef struct {
	ID    int64
	Stock int
}

// TxRepository groups the invoice mutations that must share one transaction.
type TxRepository interface {
	NextOrderNumber(ctx context.Context, date time.Time) (int, error)
	InsertInvoice(ctx context.Context, inv Invoice) (int64, error)
	UpdateInvoiceHeader(ctx context.Context, inv Invoice) error
	DeleteInvoice(ctx context.Context, id int64) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListLineItems(ctx context.Context, invoiceID int64) ([]LineItem, error)
	InsertLineItems(ctx context.Context, invoiceID int64, items []LineItem) error
	DeleteLineItems(ctx context.Context, invoiceID int64) error
	GetProductForUpdate(ctx context.Context, productID int64) (ProductRef, error)
	AdjustProductStock(ctx context.Context, productID int64, delta int) error
}

// RepositoryPort abstracts persistence for the invoice service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, int, error)
	Summarize(ctx context.Context, from, to time.Time) ([]DaySummary, error)
}

// AuditPort records mutations for the audit trail.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort invalidates derived analytics after invoice mutations.
type CachePort interface {
	Bump(ctx context.Context) error
}

// Service owns the invoice lifecycle: order number allocation, line items
// and the stock coupling that keeps product counts consistent with sales.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	cache       CachePort
	idempotency *shared.IdempotencyStore
	printer     *message.Printer
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache CachePort, idem *shared.IdempotencyStore) *Service {
	return &Service{
		repo:        repo,
		audit:       audit,
		cache:       cache,
		idempotency: idem,
		printer:     message.NewPrinter(language.English),
	}
}

// Create allocates the next per-day order number, stores the invoice and
// decrements stock for every line. Oversell is permitted; the stock floor is
// not enforced. A missing product fails the whole operation.
func (s *Service) Create(ctx context.Context, input CreateInput) (Invoice, error) {
	if err := validateLines(input.Items); err != nil {
		return Invoice{}, err
	}
	if input.Date.IsZero() {
		return Invoice{}, fmt.Errorf("%w: invoice date required", shared.ErrValidation)
	}

	insertedKey := false
	if s.idempotency != nil && input.IdempotencyKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, input.IdempotencyKey, "invoices"); err != nil {
			return Invoice{}, err
		}
		insertedKey = true
	}

	inv := Invoice{
		Date:         dateOnly(input.Date),
		CustomerID:   input.CustomerID,
		CustomerName: input.CustomerName,
		TotalAmount:  sumAmounts(input.Items),
		TotalItems:   sumQuantities(input.Items),
		Status:       "pending",
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		seq, err := tx.NextOrderNumber(ctx, inv.Date)
		if err != nil {
			return err
		}
		if seq > maxDailyOrders {
			return fmt.Errorf("%w: daily order numbers exhausted for %s", shared.ErrConflict, inv.Date.Format("2006-01-02"))
		}
		inv.OrderNumber = fmt.Sprintf("%03d", seq)

		id, err := tx.InsertInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv.ID = id

		items, err := s.applyLines(ctx, tx, id, input.Items)
		if err != nil {
			return err
		}
		inv.Items = items
		return nil
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, input.IdempotencyKey)
		}
		return Invoice{}, err
	}

	s.afterMutation(ctx, input.ActorID, "invoices:create", inv.ID, map[string]any{
		"order_number": inv.OrderNumber,
		"total_amount": inv.TotalAmount,
		"total_items":  inv.TotalItems,
	})
	return inv, nil
}

// Update replaces an invoice's lines. Stock for the old lines is restored
// before the new lines are applied, all inside one transaction, so a failure
// midway rolls back both sides.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (Invoice, error) {
	if err := validateLines(input.Items); err != nil {
		return Invoice{}, err
	}
	if input.Date.IsZero() {
		return Invoice{}, fmt.Errorf("%w: invoice date required", shared.ErrValidation)
	}

	var updated Invoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}

		old, err := tx.ListLineItems(ctx, id)
		if err != nil {
			return err
		}
		for _, item := range old {
			if err := tx.AdjustProductStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		if err := tx.DeleteLineItems(ctx, id); err != nil {
			return err
		}

		items, err := s.applyLines(ctx, tx, id, input.Items)
		if err != nil {
			return err
		}

		inv.Date = dateOnly(input.Date)
		inv.CustomerName = input.CustomerName
		inv.TotalAmount = sumAmounts(input.Items)
		inv.TotalItems = sumQuantities(input.Items)
		if err := tx.UpdateInvoiceHeader(ctx, inv); err != nil {
			return err
		}
		inv.Items = items
		updated = inv
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.afterMutation(ctx, input.ActorID, "invoices:update", id, map[string]any{
		"total_amount": updated.TotalAmount,
		"total_items":  updated.TotalItems,
	})
	return updated, nil
}

// Delete removes an invoice and its lines. When restoreStock is set, each
// line's quantity is added back to its product first.
func (s *Service) Delete(ctx context.Context, id int64, restoreStock bool, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.GetInvoice(ctx, id); err != nil {
			return err
		}
		items, err := tx.ListLineItems(ctx, id)
		if err != nil {
			return err
		}
		if restoreStock {
			for _, item := range items {
				if err := tx.AdjustProductStock(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if err := tx.DeleteLineItems(ctx, id); err != nil {
			return err
		}
		return tx.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, actorID, "invoices:delete", id, map[string]any{
		"restore_stock": restoreStock,
	})
	return nil
}

// Get returns one invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns invoices matching the filter plus the total match count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, int, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, fmt.Errorf("%w: date range reversed", shared.ErrValidation)
	}
	return s.repo.ListInvoices(ctx, filter)
}

// Summary aggregates per-day totals over a window for the print summary,
// with totals formatted for display.
func (s *Service) Summary(ctx context.Context, from, to time.Time) ([]DaySummary, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: start and end dates required", shared.ErrValidation)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: date range reversed", shared.ErrValidation)
	}
	days, err := s.repo.Summarize(ctx, dateOnly(from), dateOnly(to))
	if err != nil {
		return nil, err
	}
	for i := range days {
		days[i].FormattedTotal = s.printer.Sprintf("%.2f", days[i].TotalAmount)
	}
	return days, nil
}

// applyLines inserts the submitted lines and decrements stock per line.
func (s *Service) applyLines(ctx context.Context, tx TxRepository, invoiceID int64, lines []LineInput) ([]LineItem, error) {
	items := make([]LineItem, 0, len(lines))
	for _, line := range lines {
		if _, err := tx.GetProductForUpdate(ctx, line.ProductID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, fmt.Errorf("%w: product %d", shared.ErrNotFound, line.ProductID)
			}
			return nil, err
		}
		if err := tx.AdjustProductStock(ctx, line.ProductID, -line.Quantity); err != nil {
			return nil, err
		}
		items = append(items, LineItem{
			InvoiceID: invoiceID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Amount:    line.Amount,
		})
	}
	if err := tx.InsertLineItems(ctx, invoiceID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) afterMutation(ctx context.Context, actorID int64, action string, invoiceID int64, meta map[string]any) {
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "invoice",
			EntityID: strconv.FormatInt(invoiceID, 10),
			Meta:     meta,
		})
	}
	if s.cache != nil {
		_ = s.cache.Bump(ctx)
	}
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line item required", shared.ErrValidation)
	}
	for _, line := range lines {
		if line.ProductID <= 0 {
			return fmt.Errorf("%w: line item product id required", shared.ErrValidation)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line item quantity must be positive", shared.ErrValidation)
		}
		if line.Price < 0 || line.Amount < 0 {
			return fmt.Errorf("%w: line item price and amount must be non-negative", shared.ErrValidation)
		}
	}
	return nil
}

func sumAmounts(lines []LineInput) float64 {
	total := 0.0
	for _, line := range lines {
		total += line.Amount
	}
	return total
}

func sumQuantities(lines []LineInput) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
