package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"storefront_back_end/internal/handlers"
	"storefront_back_end/internal/middleware"
)

type Options struct {
	Sessions    sessions.Store
	Redis       *redis.Client
	CORSOrigins []string
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, opts Options) {
	corsConfig := cors.Config{
		AllowOrigins:     opts.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.CORSOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"http://localhost:5173"}
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.Sessions.Len()})
	})

	api := r.Group("/api")
	api.Use(middleware.Session(opts.Sessions))

	// Catalogue
	api.GET("/products", h.GetProducts)
	api.GET("/products/:id", h.GetProduct)

	// Panier
	cartGroup := api.Group("/cart")
	{
		cartGroup.GET("", h.GetCart)
		cartGroup.POST("/add", middleware.RateLimit(opts.Redis, "cart_add", middleware.CartAddMaxRequests, middleware.RateLimitWindow), h.AddToCart)
		cartGroup.PUT("/:productId", h.UpdateCartItem)
		cartGroup.DELETE("/:productId", h.RemoveCartItem)
		cartGroup.DELETE("", h.ClearCart)
		cartGroup.POST("/checkout", h.ProceedToCheckout)
		cartGroup.GET("/ws", h.CartWebSocket)
	}

	// Commande
	api.POST("/checkout", h.SubmitCheckout)
	api.GET("/checkout", h.GetCheckout)
	api.GET("/checkout/receipt.png", h.GetReceiptQR)

	// Analytics
	api.POST("/events", middleware.RateLimit(opts.Redis, "events", middleware.EventsMaxRequests, middleware.RateLimitWindow), h.TrackEvent)
	api.GET("/analytics", h.GetAnalytics)
	api.GET("/analytics/events", h.GetRecentEvents)
	api.GET("/analytics/timeline", h.GetTimeline)
}
