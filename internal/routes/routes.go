package routes

import (
	"net/http"

	"subcatalog/internal/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all HTTP routes on the engine.
func RegisterRoutes(ginRouter *gin.Engine, subscriptionHandler *handlers.SubscriptionHandler) {
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := ginRouter.Group("/api/v1")
	{
		subscriptionHandler.RegisterRoutes(api)
	}
}
