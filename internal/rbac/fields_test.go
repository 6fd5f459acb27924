package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/shared"
)

func TestAuthorizeFields(t *testing.T) {
	granted := []string{"edit_product_price", "edit_product_stock"}

	err := AuthorizeFields(granted, map[string]any{
		"price": 12.5,
		"stock": 40,
	}, ProductFieldCapabilities)
	require.NoError(t, err)

	err = AuthorizeFields(granted, map[string]any{
		"price": 12.5,
		"notes": "fragile",
	}, ProductFieldCapabilities)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Contains(t, err.Error(), "notes")
	require.Contains(t, err.Error(), "edit_product_notes")
}

func TestAuthorizeFieldsRejectsUnknownField(t *testing.T) {
	err := AuthorizeFields([]string{"edit_product_price"}, map[string]any{
		"serial_number": "x",
	}, ProductFieldCapabilities)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestAuthorizeFieldsEmptySubmission(t *testing.T) {
	require.NoError(t, AuthorizeFields(nil, map[string]any{}, ProductFieldCapabilities))
}
