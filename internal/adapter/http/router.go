package http

import (
	"github.com/aq2208/settlement-api/internal/adapter/http/middleware"
	"github.com/aq2208/settlement-api/internal/entity"
	"github.com/aq2208/settlement-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Webhook    *WebhookHandler
	Checkout   *CheckoutHandler
	Cart       *CartHandler
	Order      *OrderHandler
	Settlement *SettlementHandler
	Token      *TokenHandler
}

func NewRouter(h Handlers, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Token.IssueToken)

	// The webhook stays outside the body-logging middleware: the signature
	// covers the raw bytes and must see them unmodified.
	r.POST("/v1/webhooks/payment", h.Webhook.HandlePaymentCompleted)

	v1 := r.Group("/v1", middleware.Logging(l))
	{
		carts := v1.Group("/carts", authz.Require(entity.CapCartsWrite))
		{
			carts.POST("", h.Cart.CreateCart)
			carts.GET("/:id", h.Cart.GetCart)
			carts.POST("/:id/items", h.Cart.AddItem)
			carts.DELETE("/:id/items/:productId", h.Cart.RemoveItem)
			carts.POST("/:id/claim", h.Cart.ClaimCart)
		}

		v1.POST("/checkout", authz.Require(entity.CapCheckoutWrite), h.Checkout.CreateCheckout)
		v1.GET("/orders/:id", authz.Require(entity.CapOrdersRead), h.Order.GetOrderByID)

		settlements := v1.Group("/settlements")
		{
			settlements.GET("/:eventId", authz.Require(entity.CapSettlementsRead), h.Settlement.GetSettlement)
			settlements.POST("/:eventId/rearm", authz.Require(entity.CapSettlementsReconcile), h.Settlement.RearmSettlement)
		}
	}

	return r
}
