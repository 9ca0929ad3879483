package handler

import (
	"strings"

	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets clients retry POST /buy without buying twice.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLen = 100

// PurchaseHandler serves the buy endpoint.
type PurchaseHandler struct {
	purchaseSvc ports.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler.
func NewPurchaseHandler(purchaseSvc ports.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseSvc: purchaseSvc}
}

// Buy handles POST /buy.
func (h *PurchaseHandler) Buy(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req dto.BuyRequest
	if !bindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLen {
		response.Error(c, apperror.Validation("Idempotency-Key must be at most 100 characters"))
		return
	}

	txn, err := h.purchaseSvc.Buy(c.Request.Context(), ports.BuyRequest{
		Principal:      p,
		ItemID:         req.ItemID,
		IdempotencyKey: key,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewBuyResponse(txn))
}
