package analytics

import "time"

// TrendPoint is one day of sales totals.
type TrendPoint struct {
	Date         time.Time `json:"date"`
	InvoiceCount int       `json:"invoice_count"`
	TotalAmount  float64   `json:"total_amount"`
}

// ProductSales aggregates a product's sales over a window.
type ProductSales struct {
	ProductID   int64   `json:"product_id"`
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Revenue     float64 `json:"revenue"`
}

// SlowMover is a stocked product without recent sales.
type SlowMover struct {
	ProductID    int64      `json:"product_id"`
	ItemCode     string     `json:"item_code"`
	Description  string     `json:"description"`
	Stock        int        `json:"stock"`
	LastSoldDate *time.Time `json:"last_sold_date,omitempty"`
}
