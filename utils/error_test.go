package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mealdesk/apperrors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	Logger = zap.NewNop()
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"network", apperrors.NewNetworkError("list_customers", errors.New("dial tcp")), http.StatusBadGateway},
		{"validation", apperrors.NewValidationError("create_customer", map[string]string{"phone": "is required"}), http.StatusUnprocessableEntity},
		{"conflict", apperrors.NewConflictError("create_customer", 409, "phone taken"), http.StatusConflict},
		{"server keeps status", apperrors.NewServerError("delete_customer", 503, "maintenance"), http.StatusServiceUnavailable},
		{"server without status", apperrors.NewServerError("delete_customer", 0, ""), http.StatusBadGateway},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusForError(tc.err))
		})
	}
}

func TestAppErrorCarriesFields(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	AppError(c, apperrors.NewValidationError("create_customer", map[string]string{"pincode": "must be exactly 6 digits"}))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation", body.Kind)
	assert.Equal(t, "must be exactly 6 digits", body.Fields["pincode"])
	assert.NotEmpty(t, body.Message)
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
}
