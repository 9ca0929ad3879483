package response

import (
	"errors"
	"net/http"

	"marketplace/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// RequestIDHeader echoes the request id on every response.
const RequestIDHeader = "X-Request-ID"

// ErrorResponse is the error body. Detail is the human readable message.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id"`
}

// Page wraps a list result with paging metadata.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

// OK sends a 200 response with the payload as the body.
func OK(c *gin.Context, data interface{}) {
	c.Header(RequestIDHeader, getRequestID(c))
	c.JSON(http.StatusOK, data)
}

// Created sends a 201 response with the payload as the body.
func Created(c *gin.Context, data interface{}) {
	c.Header(RequestIDHeader, getRequestID(c))
	c.JSON(http.StatusCreated, data)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Header(RequestIDHeader, getRequestID(c))
	c.Status(http.StatusNoContent)
}

// Error sends an error response. Non-AppErrors are rendered as 500.
func Error(c *gin.Context, err error) {
	reqID := getRequestID(c)
	c.Header(RequestIDHeader, reqID)

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus, ErrorResponse{
			Detail:    appErr.Message,
			ErrorCode: appErr.Code,
			RequestID: reqID,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Detail:    "Internal server error",
		ErrorCode: "SYS_000",
		RequestID: reqID,
	})
}

// getRequestID retrieves the request id from context, or generates one.
func getRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok && s != "" {
			return s
		}
	}
	id := uuid.New().String()
	c.Set(RequestIDKey, id)
	return id
}
