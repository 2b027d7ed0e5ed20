package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/http/response"
	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

type CatalogHandler struct {
	log     *logger.Logger
	catalog *catalog.Index
}

func NewCatalogHandler(log *logger.Logger, cat *catalog.Index) *CatalogHandler {
	return &CatalogHandler{
		log:     log.With("handler", "CatalogHandler"),
		catalog: cat,
	}
}

func (h *CatalogHandler) GetCategories(c *gin.Context) {
	response.RespondOK(c, h.catalog.Categories())
}

func (h *CatalogHandler) GetProducts(c *gin.Context) {
	products, err := h.catalog.Products(c.Param("category"))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "category_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "catalog_error", err)
		return
	}
	response.RespondOK(c, products)
}

func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, _, err := h.catalog.Lookup(c.Param("id"))
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "product_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "catalog_error", err)
		return
	}
	response.RespondOK(c, product)
}

// ServeProductImage serves product images from their per-category subfolder.
// Path params are reduced to base names so the route cannot escape the
// products dir.
func (h *CatalogHandler) ServeProductImage(c *gin.Context) {
	category := filepath.Base(c.Param("category"))
	filename := filepath.Base(c.Param("filename"))
	c.File(filepath.Join(h.catalog.ProductsDir(), category, filename))
}
