package handler

import (
	"errors"
	"net/http"
	"strconv"

	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/adapter/http/middleware"
	"marketplace/internal/core/domain"
	"marketplace/pkg/apperror"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes, validates and sanitizes the request body into req.
// It writes the error response and returns false on failure.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, apperror.ErrPayloadTooLarge())
			return false
		}
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	return true
}

// pathID parses the :id path parameter.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.Error(c, apperror.Validation("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

// principal returns the caller set by JWTAuth, or answers 401.
func principal(c *gin.Context) (domain.Principal, bool) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return domain.Principal{}, false
	}
	return p, true
}

func newPage[T any](items []T, total int64, page, pageSize int) response.Page[T] {
	if items == nil {
		items = []T{}
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return response.Page[T]{Items: items, Total: total, Page: page, PageSize: pageSize}
}
