package ledger

import (
	"math"
	"time"
)

// TransactionKind enumerates ledger movement kinds.
type TransactionKind string

const (
	// KindPayment reduces what the customer owes.
	KindPayment TransactionKind = "payment"
	// KindRefund increases what the customer owes. Money returned to the
	// customer raises the business's notional claim in this model.
	KindRefund TransactionKind = "refund"
)

// Valid reports whether the kind is a known ledger movement.
func (k TransactionKind) Valid() bool {
	return k == KindPayment || k == KindRefund
}

// PaymentStatus is the derived tri-state of an invoice.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
)

// Transaction is a payment or refund event against a customer. Amount is
// always stored positive; the kind determines the sign in the balance.
type Transaction struct {
	ID         int64           `json:"id"`
	CustomerID int64           `json:"customer_id"`
	Date       time.Time       `json:"date"`
	Amount     float64         `json:"amount"`
	Kind       TransactionKind `json:"kind"`
	Method     string          `json:"method,omitempty"`
	Reference  string          `json:"reference,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

// Receivable is an amount the customer is obligated to pay, optionally tied
// to one invoice.
type Receivable struct {
	ID               int64     `json:"id"`
	CustomerID       int64     `json:"customer_id"`
	Amount           float64   `json:"amount"`
	AdditionalAmount float64   `json:"additional_amount"`
	Notes            string    `json:"notes"`
	Date             time.Time `json:"date"`
	InvoiceID        *int64    `json:"invoice_id,omitempty"`
}

// Balance derives a customer's net balance from its ledger entries, rounded
// half-up to 2 decimal places. Positive means the customer owes the business.
func Balance(receivables []Receivable, transactions []Transaction) float64 {
	total := 0.0
	for _, r := range receivables {
		total += r.Amount + r.AdditionalAmount
	}
	for _, t := range transactions {
		switch t.Kind {
		case KindPayment:
			total -= t.Amount
		case KindRefund:
			total += t.Amount
		}
	}
	return round2(total)
}

// Reconcile derives an invoice payment status from customer-wide totals.
// The model has no per-invoice payment allocation, so one customer payment
// can flip the status of every invoice the customer owns.
func Reconcile(receivables []Receivable, transactions []Transaction) PaymentStatus {
	totalDue := 0.0
	for _, r := range receivables {
		totalDue += r.Amount + r.AdditionalAmount
	}
	totalPayments := 0.0
	for _, t := range transactions {
		if t.Kind == KindPayment {
			totalPayments += t.Amount
		}
	}
	switch {
	case totalPayments >= totalDue:
		return StatusPaid
	case totalPayments > 0:
		return StatusPartial
	default:
		return StatusPending
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
