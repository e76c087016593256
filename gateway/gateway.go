package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/example/supermart/pkg/checkout"
	"github.com/example/supermart/pkg/config"
	"github.com/example/supermart/pkg/models"
	"github.com/example/supermart/pkg/payment/nets"
	"github.com/example/supermart/pkg/repository"
)

// userIDKey is where the identity middleware parks the parsed user ID.
const userIDKey = "userID"

type Gateway struct {
	config       *config.Config
	logger       *zap.Logger
	router       *gin.Engine
	service      *checkout.Service
	products     *repository.ProductRepository
	carts        *repository.CartRepository
	orders       *repository.OrderRepository
	transactions *repository.TransactionRepository
	users        *repository.UserRepository
	cache        *repository.RedisRepository
	audit        *repository.MongoRepository
	poller       *nets.Poller
}

type Deps struct {
	Service      *checkout.Service
	Products     *repository.ProductRepository
	Carts        *repository.CartRepository
	Orders       *repository.OrderRepository
	Transactions *repository.TransactionRepository
	Users        *repository.UserRepository
	Cache        *repository.RedisRepository
	Audit        *repository.MongoRepository
	Poller       *nets.Poller
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))

	return &Gateway{
		config:       cfg,
		logger:       logger,
		router:       router,
		service:      deps.Service,
		products:     deps.Products,
		carts:        deps.Carts,
		orders:       deps.Orders,
		transactions: deps.Transactions,
		users:        deps.Users,
		cache:        deps.Cache,
		audit:        deps.Audit,
		poller:       deps.Poller,
	}
}

func (g *Gateway) SetupRoutes() {
	// Health check
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := g.router.Group("/api/v1")
	{
		// Account routes (no identity required; registration precedes it)
		users := v1.Group("/users")
		{
			users.POST("", g.createUser)
			users.GET("/:id", g.getUser)
		}

		// Catalog routes (no identity required)
		products := v1.Group("/products")
		{
			products.GET("", g.listProducts)
			products.GET("/:id", g.getProduct)
			products.POST("", g.createProduct)
			products.PUT("/:id", g.updateProduct)
			products.DELETE("/:id", g.deleteProduct)
		}

		// Everything below acts on behalf of a user
		authed := v1.Group("")
		authed.Use(g.identityMiddleware())
		{
			cart := authed.Group("/cart")
			{
				cart.GET("", g.getCart)
				cart.POST("/items", g.addCartItem)
				cart.PUT("/items/:productId", g.updateCartItem)
				cart.POST("/items/:productId/decrement", g.decrementCartItem)
				cart.DELETE("/items/:productId", g.removeCartItem)
				cart.DELETE("", g.clearCart)
			}

			orders := authed.Group("/orders")
			{
				orders.POST("", g.createOrder)
				orders.GET("", g.listOrders)
				orders.GET("/:id", g.getOrder)
				orders.GET("/:id/audit", g.getOrderAudit)
			}

			payments := authed.Group("/payments")
			{
				payments.POST("/paypal/orders", g.createPayPalOrder)
				payments.POST("/paypal/orders/:providerOrderId/capture", g.capturePayPalOrder)
				payments.POST("/nets/qr", g.issueNetsQR)
				payments.GET("/nets/status", g.streamNetsStatus)
				payments.POST("/nets/complete", g.completeNetsPayment)
				payments.POST("/refunds/:orderId", g.refundOrder)
			}
		}
	}

	// Swagger
	g.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Server.Host, g.config.Server.Port)
	g.logger.Info("Gateway starting", zap.String("address", addr))
	return g.router.Run(addr)
}

func (g *Gateway) Router() *gin.Engine {
	return g.router
}

// identityMiddleware resolves the caller from the X-User-ID header set by
// the frontend session layer. IDs are parsed once here; handlers only see
// the typed value.
func (g *Gateway) identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := models.ParseUserID(c.GetHeader("X-User-ID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID header"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) models.UserID {
	return c.MustGet(userIDKey).(models.UserID)
}

// renderError maps the orchestrator's error taxonomy onto HTTP statuses.
// Partial-failure errors keep their detail so the frontend can explain what
// changed under the user.
func (g *Gateway) renderError(c *gin.Context, err error) {
	var (
		productGone  *checkout.ProductNotFoundError
		depleted     *checkout.CartDepletedError
		notCompleted *checkout.PaymentNotCompletedError
		persistence  *checkout.PersistenceError
		noTx         *checkout.NoTransactionFoundError
		refundFailed *checkout.RefundFailedError
		qrDeclined   *checkout.QRRequestError
	)

	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidAmount),
		errors.Is(err, checkout.ErrNoPendingPayment),
		errors.Is(err, repository.ErrCartLimitExceeded):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, checkout.ErrCheckoutInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.As(err, &productGone):
		c.JSON(http.StatusConflict, gin.H{
			"error":      err.Error(),
			"product_id": productGone.ProductID,
		})

	case errors.As(err, &depleted):
		c.JSON(http.StatusConflict, gin.H{
			"error":    err.Error(),
			"removed":  depleted.Removed,
			"adjusted": depleted.Adjusted,
		})

	case errors.As(err, &notCompleted):
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":  err.Error(),
			"status": notCompleted.Status,
		})

	case errors.As(err, &noTx):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &refundFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

	case errors.As(err, &qrDeclined):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":          err.Error(),
			"response_code":  qrDeclined.ResponseCode,
			"network_status": qrDeclined.NetworkStatus,
		})

	case errors.As(err, &persistence):
		g.logger.Error("partial order failure", zap.Uint64("order_id", persistence.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":    "order was created but could not be fully saved, please contact support",
			"order_id": persistence.OrderID,
		})

	case errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	default:
		g.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
