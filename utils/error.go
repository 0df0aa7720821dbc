package utils

import (
	"errors"
	"net/http"

	"mealdesk/apperrors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string            `json:"message"`
	Kind    string            `json:"kind,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				Logger := GetLogger()
				Logger.Error("Unhandled panic", zap.Any("error", err))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	Logger := GetLogger()
	Logger.Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// StatusForError maps an error kind to the bridge status code.
func StatusForError(err error) int {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case apperrors.KindNetwork:
		return http.StatusBadGateway
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindConflict:
		return http.StatusConflict
	default:
		if appErr.StatusCode >= 400 {
			return appErr.StatusCode
		}
		return http.StatusBadGateway
	}
}

// AppError sends err with its user-facing message and field details.
func AppError(c *gin.Context, err error) {
	status := StatusForError(err)
	resp := ErrorResponse{Message: apperrors.Message(err)}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		resp.Kind = string(appErr.Kind)
		resp.Fields = appErr.Fields
	}
	GetLogger().Warn("request failed", zap.Int("status", status), zap.Error(err))
	c.JSON(status, resp)
}
