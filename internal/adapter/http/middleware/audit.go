package middleware

import (
	"encoding/json"
	"net/http"

	"marketplace/internal/core/domain"
	"marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
)

type auditRoute struct {
	action   domain.AuditAction
	resource string
	// idParam is set when the :id path parameter names the audited resource.
	idParam bool
}

// auditRoutes maps "METHOD route" to the audited action. Purchases are
// recorded as transactions and never audited here.
var auditRoutes = map[string]auditRoute{
	"POST /auth/register":       {domain.AuditActionRegister, "user", false},
	"POST /auth/login":          {domain.AuditActionLogin, "session", false},
	"POST /wallets":             {domain.AuditActionWalletCreate, "wallet", false},
	"PUT /wallets/add":          {domain.AuditActionWalletTopup, "wallet", false},
	"PUT /wallets/:id":          {domain.AuditActionWalletUpdate, "wallet", true},
	"DELETE /wallets/:id":       {domain.AuditActionWalletDelete, "wallet", true},
	"POST /merchants":           {domain.AuditActionMerchantCreate, "merchant", false},
	"PUT /merchants/:id":        {domain.AuditActionMerchantUpdate, "merchant", true},
	"DELETE /merchants/:id":     {domain.AuditActionMerchantDelete, "merchant", true},
	"POST /merchants/:id/items": {domain.AuditActionItemCreate, "item", false},
	"POST /items":               {domain.AuditActionItemCreate, "item", false},
	"PUT /items/:id":            {domain.AuditActionItemUpdate, "item", true},
	"DELETE /items/:id":         {domain.AuditActionItemDelete, "item", true},
}

// AuditLog creates an audit middleware that logs successful write operations.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead || c.Request.Method == http.MethodOptions {
			return
		}

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &domain.AuditLog{
			Action:       route.action,
			ResourceType: route.resource,
			IPAddress:    c.ClientIP(),
		}
		if route.idParam {
			entry.ResourceID = c.Param("id")
		}
		if p, ok := PrincipalFrom(c); ok {
			userID := p.UserID
			entry.UserID = &userID
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": status,
		})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}
