package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/http/handlers"
	"github.com/modehaus/lookbook-backend/internal/outfit"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
	"github.com/modehaus/lookbook-backend/internal/server"
)

type App struct {
	Log     *logger.Logger
	Router  *gin.Engine
	Cfg     Config
	Clients Clients
	Outfits *outfit.Service
	Catalog *catalog.Index
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	cat, err := catalog.Load(log, cfg.CatalogFile, cfg.ProductsDir)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	clients, err := wireClients(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	outfits := outfit.NewService(log, cat, clients.ArtifactStore, clients.Composer, clients.GenerationLock)

	log.Info("Wiring handlers...")
	router := server.NewRouter(server.RouterConfig{
		Log:            log,
		HealthHandler:  handlers.NewHealthHandler(),
		CatalogHandler: handlers.NewCatalogHandler(log, cat),
		LookHandler:    handlers.NewLookHandler(log, outfits, clients.Publisher, clients.ArtifactStore),
		OrderHandler:   handlers.NewOrderHandler(log, cat, clients.Publisher),
	})

	return &App{
		Log:     log,
		Router:  router,
		Cfg:     cfg,
		Clients: clients,
		Outfits: outfits,
		Catalog: cat,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Clients.Publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := a.Clients.Publisher.Close(ctx); err != nil {
			a.Log.Warn("Event publisher close failed", "error", err)
		}
		cancel()
	}
	if a.Clients.GenerationLock != nil {
		if err := a.Clients.GenerationLock.Close(); err != nil {
			a.Log.Warn("Generation lock close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
