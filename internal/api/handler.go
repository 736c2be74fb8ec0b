package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"marketplace/internal/i18n"
	"marketplace/internal/layout"
	"marketplace/internal/models"
	"marketplace/internal/pages"
	"marketplace/internal/router"
	"marketplace/internal/service"
	"marketplace/internal/session"
	"marketplace/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the components the HTTP surface is built from
type Deps struct {
	Sessions   *session.Manager
	Router     *router.Router
	Composer   *layout.Composer
	Pages      *pages.Pages
	Translator *i18n.Translator
	Catalog    *service.CatalogService
	Orders     *service.OrderService
	Invoices   *service.InvoiceService
	Profiles   *service.ProfileService
	Support    *service.SupportService
	Payments   *service.PaymentService

	// Ready reports whether backing services answer; nil means always ready
	Ready      func(ctx context.Context) error
	SessionTTL time.Duration
	Secure     bool
}

// Handler contains HTTP handlers
type Handler struct {
	Deps
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(d Deps) *Handler {
	if d.SessionTTL <= 0 {
		d.SessionTTL = 24 * time.Hour
	}
	return &Handler{
		Deps: d,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: util.Named("api"),
	}
}

// SetupRoutes sets up HTTP routes. Every GET that no route claims is a page
// request and goes through the session navigator.
func (h *Handler) SetupRoutes(engine *gin.Engine) {
	engine.Use(gin.Recovery())
	engine.Use(prometheusMiddleware())
	engine.Use(gin.Logger())

	engine.GET("/health", h.healthCheck)
	engine.GET("/ready", h.readinessCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.GET("/static/app.css", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/css; charset=utf-8", []byte(layout.StyleSheet))
	})
	engine.GET("/static/app.js", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/javascript; charset=utf-8", []byte(layout.Script))
	})

	engine.GET("/ws/cart", h.sessionMiddleware(), h.cartSocket)

	api := engine.Group("/api", h.sessionMiddleware())
	{
		api.POST("/session/profile", h.selectProfile)
		api.POST("/session/logout", h.logout)
		api.POST("/preferences/theme", h.toggleTheme)
		api.POST("/preferences/language", h.setLanguage)

		buyer := api.Group("", h.requireRole(models.RoleBuyer))
		buyer.GET("/cart", h.getCart)
		buyer.POST("/cart/add", h.addToCart)
		buyer.POST("/cart/update", h.updateCart)
		buyer.POST("/cart/remove", h.removeFromCart)
		buyer.POST("/cart/clear", h.clearCart)
		buyer.POST("/checkout", h.checkout)

		seller := api.Group("/seller", h.requireRole(models.RoleSeller))
		seller.POST("/products", h.saveProduct)
		seller.POST("/products/delete", h.deleteProduct)
		seller.POST("/orders/status", h.updateOrderStatus)
		seller.POST("/invoices/pay", h.recordBalancePayment)
		seller.POST("/branches", h.addBranch)
		seller.POST("/branches/delete", h.removeBranch)

		user := api.Group("", h.requireUser())
		user.GET("/orders/:id", h.getOrder)
		user.POST("/profile", h.updateProfile)
		user.POST("/support/messages", h.postMessage)
		user.POST("/notifications/read", h.markNotificationsRead)
	}

	engine.NoRoute(h.sessionMiddleware(), h.servePage)
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unavailable",
				"details": err.Error(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"sessions": h.Sessions.Len(),
		"time":     time.Now().Unix(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		// page requests have no route pattern; keep the label set bounded
		path := c.FullPath()
		if path == "" {
			path = "page"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}
