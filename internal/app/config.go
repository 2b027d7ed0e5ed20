package app

import (
	"github.com/modehaus/lookbook-backend/internal/pkg/envutil"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

type Config struct {
	Port          string
	CatalogFile   string
	ProductsDir   string
	GeneratedDir  string
	ArtifactStore string // "local" or "gcs"
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		Port:          envutil.Get("PORT", "8080", log),
		CatalogFile:   envutil.Get("CATALOG_FILE", "./data/catalog.json", log),
		ProductsDir:   envutil.Get("PRODUCTS_DIR", "./static/products", log),
		GeneratedDir:  envutil.Get("GENERATED_DIR", "./static/generated", log),
		ArtifactStore: envutil.Get("ARTIFACT_STORE", "local", log),
	}
}
