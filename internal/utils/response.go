package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/apperr"
)

// ResponseData represents the structure of a standard API response.
type ResponseData struct {
	Status  int               `json:"status"`
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Success sends a standard success response.
func Success(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, ResponseData{
		Status:  http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Created sends a standard resource created response.
func Created(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, ResponseData{
		Status:  http.StatusCreated,
		Message: message,
		Data:    data,
	})
}

// Error sends a standard error response.
func Error(c *gin.Context, statusCode int, errorMessage string) {
	c.JSON(statusCode, ResponseData{
		Status:  statusCode,
		Message: "An error occurred",
		Error:   errorMessage,
	})
}

// BadRequest sends a 400 Bad Request error response.
func BadRequest(c *gin.Context, errorMessage string) {
	Error(c, http.StatusBadRequest, errorMessage)
}

// ValidationFailed sends a 400 with one message per offending field.
func ValidationFailed(c *gin.Context, errorMessage string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, ResponseData{
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Error:   errorMessage,
		Fields:  fields,
	})
}

// Unauthorized sends a 401 Unauthorized error response.
func Unauthorized(c *gin.Context, errorMessage string) {
	Error(c, http.StatusUnauthorized, errorMessage)
}

// Forbidden sends a 403 Forbidden error response.
func Forbidden(c *gin.Context, errorMessage string) {
	Error(c, http.StatusForbidden, errorMessage)
}

// NotFound sends a 404 Not Found error response.
func NotFound(c *gin.Context, errorMessage string) {
	Error(c, http.StatusNotFound, errorMessage)
}

// Conflict sends a 409 Conflict error response.
func Conflict(c *gin.Context, errorMessage string) {
	Error(c, http.StatusConflict, errorMessage)
}

// InternalServerError sends a 500 Internal Server Error response.
func InternalServerError(c *gin.Context, errorMessage string) {
	Error(c, http.StatusInternalServerError, errorMessage)
}

// HandleError maps a service error to the response envelope. Causes of
// internal errors are attached to the gin context for the request logger
// and never sent to the client.
func HandleError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		InternalServerError(c, "Internal server error")
		return
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		if len(appErr.Fields) > 0 {
			ValidationFailed(c, appErr.Message, appErr.Fields)
			return
		}
		BadRequest(c, appErr.Message)
	case apperr.KindUnauthorized:
		Unauthorized(c, appErr.Message)
	case apperr.KindForbidden:
		Forbidden(c, appErr.Message)
	case apperr.KindNotFound:
		NotFound(c, appErr.Message)
	case apperr.KindConflict:
		Conflict(c, appErr.Message)
	default:
		_ = c.Error(err)
		InternalServerError(c, appErr.Message)
	}
}
