package server

import (
	"github.com/gin-gonic/gin"

	"github.com/modehaus/lookbook-backend/internal/http/handlers"
	"github.com/modehaus/lookbook-backend/internal/http/middleware"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	HealthHandler  *handlers.HealthHandler
	CatalogHandler *handlers.CatalogHandler
	LookHandler    *handlers.LookHandler
	OrderHandler   *handlers.OrderHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.AttachRequestID())
	router.Use(middleware.RequestLogger(cfg.Log))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/categories", cfg.CatalogHandler.GetCategories)
		api.GET("/products/:category", cfg.CatalogHandler.GetProducts)
		api.GET("/product/:id", cfg.CatalogHandler.GetProduct)
		api.POST("/generate", cfg.LookHandler.GenerateLook)
		api.POST("/combinations", cfg.OrderHandler.PublishCombination)
		api.POST("/orders", cfg.OrderHandler.PlaceOrder)
	}

	router.GET("/products/:category/:filename", cfg.CatalogHandler.ServeProductImage)
	router.GET("/generated/:filename", cfg.LookHandler.ServeArtifact)

	return router
}
