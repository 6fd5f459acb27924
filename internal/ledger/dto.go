package ledger

// RecordTransactionRequest is the payload for recording a payment or refund.
type RecordTransactionRequest struct {
	CustomerID int64   `json:"customer_id" validate:"required,gt=0"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Kind       string  `json:"kind" validate:"required,oneof=payment refund"`
	Method     string  `json:"method,omitempty" validate:"omitempty,max=50"`
	Reference  string  `json:"reference,omitempty" validate:"omitempty,max=50"`
	Notes      string  `json:"notes,omitempty"`
}

// UpdateTransactionRequest is the payload for editing a movement.
type UpdateTransactionRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Method    string  `json:"method,omitempty" validate:"omitempty,max=50"`
	Reference string  `json:"reference,omitempty" validate:"omitempty,max=50"`
	Notes     string  `json:"notes,omitempty"`
}

// RecordReceivableRequest is the payload for recording an obligation.
type RecordReceivableRequest struct {
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	AdditionalAmount float64 `json:"additional_amount,omitempty" validate:"gte=0"`
	Notes            string  `json:"notes" validate:"required"`
	InvoiceID        *int64  `json:"invoice_id,omitempty" validate:"omitempty,gt=0"`
}

// UpdateReceivableRequest is the payload for editing an obligation.
type UpdateReceivableRequest struct {
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	AdditionalAmount float64 `json:"additional_amount,omitempty" validate:"gte=0"`
	Notes            string  `json:"notes" validate:"required"`
}

// LinkInvoiceRequest attaches an invoice to a customer account.
type LinkInvoiceRequest struct {
	InvoiceID        int64   `json:"invoice_id" validate:"required,gt=0"`
	AdditionalAmount float64 `json:"additional_amount,omitempty" validate:"gte=0"`
	Notes            string  `json:"notes,omitempty"`
}
