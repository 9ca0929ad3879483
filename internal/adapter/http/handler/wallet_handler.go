package handler

import (
	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /wallets for a caller that has no wallet yet.
func (h *WalletHandler) Create(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.Create(c.Request.Context(), p)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, wallet)
}

// List handles GET /wallets.
func (h *WalletHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}

	wallets, total, err := h.walletSvc.List(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, newPage(wallets, total, q.Page, q.PageSize))
}

// Get handles GET /wallets/:id.
func (h *WalletHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	wallet, err := h.walletSvc.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// Update handles PUT /wallets/:id, replacing the balance.
func (h *WalletHandler) Update(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req dto.WalletBalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Balance == nil {
		response.Error(c, apperror.Validation("balance is required"))
		return
	}

	wallet, err := h.walletSvc.Update(c.Request.Context(), p, id, *req.Balance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// Delete handles DELETE /wallets/:id.
func (h *WalletHandler) Delete(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.walletSvc.Delete(c.Request.Context(), p, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TopUp handles PUT /wallets/add. The balance field is the amount to add.
func (h *WalletHandler) TopUp(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.WalletBalanceRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Balance == nil || !req.Balance.IsPositive() {
		response.Error(c, apperror.Validation("balance must be greater than zero"))
		return
	}

	wallet, err := h.walletSvc.TopUp(c.Request.Context(), p, *req.Balance)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}
