package customer

import (
	"errors"
	"strings"
	"testing"

	"mealdesk/apperrors"
	"mealdesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	return appErr.Fields
}

func TestCheckFieldsAcceptsValidRecord(t *testing.T) {
	assert.NoError(t, checkFields("create_customer", validCustomer()))

	noEmail := validCustomer()
	noEmail.Email = ""
	assert.NoError(t, checkFields("create_customer", noEmail))
}

func TestCheckFieldsReportsWireNames(t *testing.T) {
	c := validCustomer()
	c.Name = ""
	c.Email = "not-an-email"
	c.Address = strings.Repeat("a", 251)
	c.ProviderID = ""

	fields := fieldsOf(t, checkFields("create_customer", c))
	assert.Equal(t, map[string]string{
		"name":       "is required",
		"email":      "must be a valid email address",
		"address":    "must be at most 250 characters",
		"providerId": "is required",
	}, fields)
}

func TestCheckFieldsOnPatchSkipsAbsentFields(t *testing.T) {
	assert.NoError(t, checkFields("update_customer", models.CustomerPatch{}))

	empty := ""
	fields := fieldsOf(t, checkFields("update_customer", models.CustomerPatch{City: &empty}))
	assert.Equal(t, "must not be empty", fields["city"])
}
