package handler

import (
	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// ItemHandler handles catalogue endpoints.
type ItemHandler struct {
	itemSvc ports.ItemService
}

// NewItemHandler creates a new ItemHandler.
func NewItemHandler(itemSvc ports.ItemService) *ItemHandler {
	return &ItemHandler{itemSvc: itemSvc}
}

func itemInput(req dto.ItemRequest) ports.ItemInput {
	return ports.ItemInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Tax:         req.Tax,
		MerchantID:  req.MerchantID,
	}
}

// Create handles POST /items.
func (h *ItemHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.ItemRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.MerchantID == 0 {
		response.Error(c, apperror.Validation("merchant_id is required"))
		return
	}

	item, err := h.itemSvc.Create(c.Request.Context(), p, itemInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List handles GET /items, optionally narrowed by merchant_id.
func (h *ItemHandler) List(c *gin.Context) {
	var q dto.ItemQuery
	if !bindQuery(c, &q) {
		return
	}

	items, total, err := h.itemSvc.List(c.Request.Context(), q.MerchantID, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, newPage(items, total, q.Page, q.PageSize))
}

// Get handles GET /items/:id.
func (h *ItemHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.itemSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Update handles PUT /items/:id.
func (h *ItemHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.ItemRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.itemSvc.Update(c.Request.Context(), p, id, itemInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Delete handles DELETE /items/:id.
func (h *ItemHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.itemSvc.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
