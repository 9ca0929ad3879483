package handler

import (
	"marketplace/internal/adapter/http/middleware"
	"marketplace/internal/adapter/metrics"
	"marketplace/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	PurchaseSvc    ports.PurchaseService
	WalletSvc      ports.WalletService
	MerchantSvc    ports.MerchantService
	ItemSvc        ports.ItemService
	TransactionSvc ports.TransactionService
	TokenSvc       ports.TokenService
	TokenDenylist  ports.TokenDenylist  // nil = logout cannot revoke
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        *metrics.Metrics   // nil = metrics disabled
	MetricsPath    string
	OpenAPISpec    []byte
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.MaxBodySize(maxBodyBytes))
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, deps.Metrics.Handler())
	}

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec(deps.OpenAPISpec))
	}

	rl := func(group string) gin.HandlerFunc {
		rule, ok := deps.RateLimitRules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.TokenDenylist, deps.Logger)

	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := r.Group("/auth")
	{
		auth.POST("/register", rl(middleware.GroupAuthRegister), authHandler.Register)
		auth.POST("/login", rl(middleware.GroupAuthLogin), authHandler.Login)
		auth.POST("/logout", jwtAuth, authHandler.Logout)
		auth.GET("/me", jwtAuth, authHandler.Me)
	}

	purchaseHandler := NewPurchaseHandler(deps.PurchaseSvc)
	r.POST("/buy", jwtAuth, rl(middleware.GroupBuy), purchaseHandler.Buy)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	walletWrite := rl(middleware.GroupWalletsWrite)
	wallets := r.Group("/wallets")
	{
		wallets.GET("", walletHandler.List)
		wallets.GET("/:id", walletHandler.Get)
		wallets.POST("", jwtAuth, walletWrite, walletHandler.Create)
		wallets.PUT("/add", jwtAuth, walletWrite, walletHandler.TopUp)
		wallets.PUT("/:id", jwtAuth, walletWrite, walletHandler.Update)
		wallets.DELETE("/:id", jwtAuth, walletWrite, walletHandler.Delete)
	}

	merchantHandler := NewMerchantHandler(deps.MerchantSvc, deps.ItemSvc)
	merchants := r.Group("/merchants")
	{
		merchants.GET("", merchantHandler.List)
		merchants.GET("/:id", merchantHandler.Get)
		merchants.POST("", jwtAuth, merchantHandler.Create)
		merchants.PUT("/:id", jwtAuth, merchantHandler.Update)
		merchants.DELETE("/:id", jwtAuth, merchantHandler.Delete)
		merchants.GET("/:id/stats", jwtAuth, merchantHandler.Stats)
		merchants.POST("/:id/items", jwtAuth, merchantHandler.CreateItem)
	}

	itemHandler := NewItemHandler(deps.ItemSvc)
	items := r.Group("/items")
	{
		items.GET("", itemHandler.List)
		items.GET("/:id", itemHandler.Get)
		items.POST("", jwtAuth, itemHandler.Create)
		items.PUT("/:id", jwtAuth, itemHandler.Update)
		items.DELETE("/:id", jwtAuth, itemHandler.Delete)
	}

	txnHandler := NewTransactionHandler(deps.TransactionSvc)
	transactions := r.Group("/transactions", jwtAuth)
	{
		transactions.GET("", txnHandler.List)
		transactions.GET("/:id", txnHandler.Get)
	}

	return r
}
