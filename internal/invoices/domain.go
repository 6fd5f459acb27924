package invoices

import (
	"time"

	"github.com/shopledger/shopledger/internal/ledger"
)

// Invoice is a dated, numbered sale record. Walk-in sales carry no customer
// reference; account sales are linked via the ledger service.
type Invoice struct {
	ID           int64                `json:"id"`
	OrderNumber  string               `json:"order_number"`
	Date         time.Time            `json:"date"`
	CustomerID   *int64               `json:"customer_id,omitempty"`
	CustomerName string               `json:"customer_name,omitempty"`
	TotalAmount  float64              `json:"total_amount"`
	TotalItems   int                  `json:"total_items"`
	Status       ledger.PaymentStatus `json:"payment_status"`
	Items        []LineItem           `json:"items,omitempty"`
}

// LineItem is one product line on an invoice. Amount is caller-supplied and
// not re-derived from quantity and price.
type LineItem struct {
	ID          int64   `json:"id"`
	InvoiceID   int64   `json:"invoice_id"`
	ProductID   int64   `json:"product_id"`
	ProductCode string  `json:"product_code,omitempty"`
	Description string  `json:"description,omitempty"`
	Unit        string  `json:"uom,omitempty"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Amount      float64 `json:"amount"`
}

// LineInput is a submitted invoice line.
type LineInput struct {
	ProductID int64
	Quantity  int
	Price     float64
	Amount    float64
}

// CreateInput describes a new invoice.
type CreateInput struct {
	Date           time.Time
	CustomerID     *int64
	CustomerName   string
	Items          []LineInput
	IdempotencyKey string
	ActorID        int64
}

// UpdateInput describes an invoice edit. The order number never changes.
type UpdateInput struct {
	Date         time.Time
	CustomerName string
	Items        []LineInput
	ActorID      int64
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	From       time.Time
	To         time.Time
	CustomerID int64
	Limit      int
	Offset     int
}

// DaySummary aggregates invoices over a date window for the print summary.
type DaySummary struct {
	Date           time.Time `json:"date"`
	InvoiceCount   int       `json:"invoice_count"`
	ItemCount      int       `json:"item_count"`
	TotalAmount    float64   `json:"total_amount"`
	FormattedTotal string    `json:"formatted_total"`
}
