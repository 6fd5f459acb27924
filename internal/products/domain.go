package products

// Product is a catalog item. Stock is a free integer that invoicing may
// drive negative.
type Product struct {
	ID           int64   `json:"id"`
	ItemCode     string  `json:"item_code"`
	Description  string  `json:"description"`
	LocalName    string  `json:"local_name,omitempty"`
	Unit         string  `json:"uom"`
	Price        float64 `json:"price"`
	Stock        int     `json:"stock"`
	RestockLevel int     `json:"restock_level"`
	Locations    string  `json:"stock_locations,omitempty"`
	Tags         string  `json:"tags,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// NeedsRestock reports whether the product is at or below its restock level.
func (p Product) NeedsRestock() bool {
	return p.Stock <= p.RestockLevel
}

// Input describes a product create or full update.
type Input struct {
	ItemCode     string
	Description  string
	LocalName    string
	Unit         string
	Price        float64
	Stock        int
	RestockLevel int
	Locations    string
	Tags         string
	Notes        string
	ActorID      int64
}
