package products

// ProductRequest is the payload for creating or updating a product.
type ProductRequest struct {
	ItemCode     string  `json:"item_code" validate:"required,max=20"`
	Description  string  `json:"description" validate:"required,max=200"`
	LocalName    string  `json:"local_name,omitempty" validate:"omitempty,max=200"`
	Unit         string  `json:"uom" validate:"required,max=10"`
	Price        float64 `json:"price" validate:"gte=0"`
	Stock        int     `json:"stock"`
	RestockLevel int     `json:"restock_level" validate:"gte=0"`
	Locations    string  `json:"stock_locations,omitempty" validate:"omitempty,max=500"`
	Tags         string  `json:"tags,omitempty" validate:"omitempty,max=500"`
	Notes        string  `json:"notes,omitempty"`
}

// AdjustStockRequest is the payload for a manual stock correction.
type AdjustStockRequest struct {
	Delta int `json:"delta" validate:"required"`
}
