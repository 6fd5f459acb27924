package invoices

import "time"

// LineRequest is one submitted invoice line.
type LineRequest struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Quantity  int     `json:"quantity" validate:"required,gt=0"`
	Price     float64 `json:"price" validate:"gte=0"`
	Amount    float64 `json:"amount" validate:"gte=0"`
}

// CreateInvoiceRequest is the payload for creating an invoice.
type CreateInvoiceRequest struct {
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	CustomerID   *int64        `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	CustomerName string        `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	Items        []LineRequest `json:"items" validate:"required,min=1,dive"`
}

// UpdateInvoiceRequest is the payload for editing an invoice. The order
// number is immutable and not accepted here.
type UpdateInvoiceRequest struct {
	Date         string        `json:"date" validate:"required,datetime=2006-01-02"`
	CustomerName string        `json:"customer_name,omitempty" validate:"omitempty,max=200"`
	Items        []LineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r CreateInvoiceRequest) toInput() (CreateInput, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return CreateInput{}, err
	}
	return CreateInput{
		Date:         date,
		CustomerID:   r.CustomerID,
		CustomerName: r.CustomerName,
		Items:        toLineInputs(r.Items),
	}, nil
}

func (r UpdateInvoiceRequest) toInput() (UpdateInput, error) {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return UpdateInput{}, err
	}
	return UpdateInput{
		Date:         date,
		CustomerName: r.CustomerName,
		Items:        toLineInputs(r.Items),
	}, nil
}

func toLineInputs(lines []LineRequest) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Amount:    line.Amount,
		})
	}
	return out
}
