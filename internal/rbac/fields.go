package rbac

import (
	"fmt"

	"github.com/shopledger/shopledger/internal/shared"
)

// FieldCapability ties a writable field to the permission that gates it.
type FieldCapability struct {
	Field      string
	Permission string
}

// ProductFieldCapabilities gates partial product updates field by field.
var ProductFieldCapabilities = []FieldCapability{
	{Field: "item_code", Permission: "edit_product_code"},
	{Field: "description", Permission: "edit_product_description"},
	{Field: "local_name", Permission: "edit_product_local_name"},
	{Field: "uom", Permission: "edit_product_uom"},
	{Field: "price", Permission: "edit_product_price"},
	{Field: "stock", Permission: "edit_product_stock"},
	{Field: "restock_level", Permission: "edit_product_restock"},
	{Field: "stock_locations", Permission: "edit_product_locations"},
	{Field: "tags", Permission: "edit_product_tags"},
	{Field: "notes", Permission: "edit_product_notes"},
}

// AuthorizeFields checks every submitted field against the capability map in
// a single pass. A field without a mapping is rejected outright; a mapped
// field requires its permission among the granted set.
func AuthorizeFields(granted []string, fields map[string]any, caps []FieldCapability) error {
	set := permissionSet(granted)
	byField := make(map[string]string, len(caps))
	for _, c := range caps {
		byField[c.Field] = c.Permission
	}
	for field := range fields {
		perm, ok := byField[field]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", shared.ErrValidation, field)
		}
		if _, ok := set[perm]; !ok {
			return fmt.Errorf("%w: field %q requires permission %s", shared.ErrForbidden, field, perm)
		}
	}
	return nil
}
