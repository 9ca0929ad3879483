package handler

import (
	"time"

	"marketplace/internal/adapter/http/dto"
	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"
	"marketplace/pkg/apperror"
	"marketplace/pkg/response"

	"github.com/gin-gonic/gin"
)

// TransactionHandler exposes the read-only purchase history.
type TransactionHandler struct {
	txnSvc ports.TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(txnSvc ports.TransactionService) *TransactionHandler {
	return &TransactionHandler{txnSvc: txnSvc}
}

// List handles GET /transactions.
func (h *TransactionHandler) List(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q dto.TransactionQuery
	if !bindQuery(c, &q) {
		return
	}

	filter := domain.TransactionFilter{
		WalletID:   q.WalletID,
		MerchantID: q.MerchantID,
		ItemID:     q.ItemID,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}
	var err error
	if filter.From, err = parseTimeParam(q.From); err != nil {
		response.Error(c, apperror.Validation("from must be an RFC 3339 timestamp"))
		return
	}
	if filter.To, err = parseTimeParam(q.To); err != nil {
		response.Error(c, apperror.Validation("to must be an RFC 3339 timestamp"))
		return
	}

	txns, total, err := h.txnSvc.List(c.Request.Context(), p, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, newPage(txns, total, q.Page, q.PageSize))
}

// Get handles GET /transactions/:id.
func (h *TransactionHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	txn, err := h.txnSvc.Get(c.Request.Context(), p, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, txn)
}

func parseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
