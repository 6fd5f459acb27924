package rbac

// Permission is an atomic capability granted to a user. Admins hold every
// permission implicitly.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultPermissions is the catalog seeded at startup. Grants reference
// these by name.
var DefaultPermissions = []Permission{
	{Name: "view_customers", Description: "Can view customers list and details"},
	{Name: "edit_customers", Description: "Can create, edit and delete customers"},
	{Name: "view_invoices", Description: "Can view invoices"},
	{Name: "create_invoices", Description: "Can create new invoices"},
	{Name: "edit_invoices", Description: "Can edit existing invoices"},
	{Name: "delete_invoices", Description: "Can delete invoices"},
	{Name: "view_products", Description: "Can view products list"},
	{Name: "edit_products", Description: "Can create, edit and delete products"},
	{Name: "import_products", Description: "Can import products"},
	{Name: "export_products", Description: "Can export products"},
	{Name: "manage_stock", Description: "Can update product stock levels"},
	{Name: "edit_product_code", Description: "Can edit product item codes"},
	{Name: "edit_product_description", Description: "Can edit product descriptions"},
	{Name: "edit_product_local_name", Description: "Can edit product local names"},
	{Name: "edit_product_uom", Description: "Can edit product units of measure"},
	{Name: "edit_product_price", Description: "Can edit product prices"},
	{Name: "edit_product_stock", Description: "Can edit product stock levels"},
	{Name: "edit_product_restock", Description: "Can edit product restock levels"},
	{Name: "edit_product_locations", Description: "Can edit product locations"},
	{Name: "edit_product_tags", Description: "Can edit product tags"},
	{Name: "edit_product_notes", Description: "Can edit product notes"},
	{Name: "view_reports", Description: "Can view reports"},
	{Name: "manage_users", Description: "Can manage users"},
}
