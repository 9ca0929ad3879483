package handler

import (
	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/core/ports"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// MerchantHandler handles merchant endpoints, including the
// merchant-scoped item routes.
type MerchantHandler struct {
	merchantSvc ports.MerchantService
	itemSvc     ports.ItemService
}

// NewMerchantHandler creates a new MerchantHandler.
func NewMerchantHandler(merchantSvc ports.MerchantService, itemSvc ports.ItemService) *MerchantHandler {
	return &MerchantHandler{merchantSvc: merchantSvc, itemSvc: itemSvc}
}

// Create handles POST /merchants. The caller becomes the owner.
func (h *MerchantHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.MerchantRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.Create(c.Request.Context(), p, ports.MerchantInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, merchant)
}

// List handles GET /merchants.
func (h *MerchantHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	merchants, total, err := h.merchantSvc.List(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, newPage(merchants, total, q.Page, q.PageSize))
}

// Get handles GET /merchants/:id.
func (h *MerchantHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	merchant, err := h.merchantSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Update handles PUT /merchants/:id.
func (h *MerchantHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.MerchantRequest
	if !bindJSON(c, &req) {
		return
	}

	merchant, err := h.merchantSvc.Update(c.Request.Context(), p, id, ports.MerchantInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, merchant)
}

// Delete handles DELETE /merchants/:id. Items of the merchant go with it.
func (h *MerchantHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.merchantSvc.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Stats handles GET /merchants/:id/stats.
func (h *MerchantHandler) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	stats, err := h.merchantSvc.Stats(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// CreateItem handles POST /merchants/:id/items.
func (h *MerchantHandler) CreateItem(c *gin.Context) {
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

	in := itemInput(req)
	in.MerchantID = id
	item, err := h.itemSvc.Create(c.Request.Context(), p, in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}
