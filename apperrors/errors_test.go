package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesKind(t *testing.T) {
	netErr := NewNetworkError("list_customers", context.DeadlineExceeded)
	assert.True(t, errors.Is(netErr, ErrNetwork))
	assert.False(t, errors.Is(netErr, ErrServer))
	assert.True(t, errors.Is(netErr, context.DeadlineExceeded))

	wrapped := fmt.Errorf("refresh: %w", NewConflictError("create_customer", 409, "phone already registered"))
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestServerErrorFallsBackToGenericMessage(t *testing.T) {
	err := NewServerError("delete_customer", 500, "  ")
	assert.Equal(t, GenericMessage, err.UserMessage())
	assert.Equal(t, "delete_customer: "+GenericMessage, err.Error())
}

func TestValidationErrorListsFieldsInOrder(t *testing.T) {
	err := NewValidationError("create_customer", map[string]string{
		"phone":   "must be exactly 10 digits",
		"pincode": "must be exactly 6 digits",
	})
	require.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, "create_customer: phone: must be exactly 10 digits; pincode: must be exactly 6 digits", err.Error())
}

func TestMessageForForeignErrors(t *testing.T) {
	assert.Equal(t, "", Message(nil))
	assert.Equal(t, GenericMessage, Message(errors.New("boom")))
	assert.Equal(t, "phone taken", Message(NewConflictError("x", 409, "phone taken")))
}
