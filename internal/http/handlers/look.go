package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/clients/eventhub"
	"github.com/modehaus/lookbook-backend/internal/http/response"
	"github.com/modehaus/lookbook-backend/internal/outfit"
	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
	"github.com/modehaus/lookbook-backend/internal/storage"
)

type LookHandler struct {
	log       *logger.Logger
	outfits   *outfit.Service
	publisher eventhub.Publisher
	store     storage.ArtifactStore
}

func NewLookHandler(
	log *logger.Logger,
	outfits *outfit.Service,
	publisher eventhub.Publisher,
	store storage.ArtifactStore,
) *LookHandler {
	return &LookHandler{
		log:       log.With("handler", "LookHandler"),
		outfits:   outfits,
		publisher: publisher,
		store:     store,
	}
}

type generateRequest struct {
	UserID string   `json:"user_id"`
	Items  []string `json:"items"`
}

type generateResponse struct {
	Success       bool              `json:"success"`
	Image         string            `json:"image"`
	Cached        bool              `json:"cached"`
	CombinationID string            `json:"combination_id"`
	Products      []catalog.Product `json:"products"`
	Warning       string            `json:"warning,omitempty"`
}

// GenerateLook runs the cache-or-generate flow for the selected items and
// emits a combination event on the side. A failed publish downgrades to a
// warning; it never fails the request.
func (h *LookHandler) GenerateLook(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_items_selected", pkgerrors.ErrInvalidArgument)
		return
	}

	result, err := h.outfits.GetOrGenerate(c.Request.Context(), req.Items)
	if err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrInvalidArgument):
			response.RespondError(c, http.StatusBadRequest, "invalid_selection", err)
		case errors.Is(err, pkgerrors.ErrNotFound):
			response.RespondError(c, http.StatusBadRequest, "no_resolvable_images", err)
		default:
			h.log.Error("Look generation failed", "items", strings.Join(req.Items, ","), "error", err)
			response.RespondError(c, http.StatusInternalServerError, "generation_failed", err)
		}
		return
	}

	warning := ""
	if _, pubErr := h.publisher.PublishCombination(c.Request.Context(), req.UserID, eventItems(req.Items, result.Products)); pubErr != nil {
		h.log.Warn("Combination event publish failed", "combination_id", result.CombinationID, "error", pubErr)
		warning = "combination event not published"
	}

	response.RespondOK(c, generateResponse{
		Success:       true,
		Image:         "/generated/" + result.ArtifactKey,
		Cached:        result.Cached,
		CombinationID: result.CombinationID,
		Products:      result.Products,
		Warning:       warning,
	})
}

// ServeArtifact streams a generated look image out of the artifact store.
func (h *LookHandler) ServeArtifact(c *gin.Context) {
	key := filepath.Base(c.Param("filename"))
	r, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "artifact_not_found", err)
			return
		}
		response.RespondError(c, http.StatusInternalServerError, "artifact_error", err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", "image/jpeg")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		h.log.Warn("Artifact stream interrupted", "key", key, "error", err)
	}
}

// eventItems builds event payload items for the requested ids. Ids the
// catalog resolved carry full product attributes; unknown ids keep only the
// product id so the derived combination id stays faithful to the request.
func eventItems(requested []string, resolved []catalog.Product) []eventhub.Item {
	byID := make(map[string]catalog.Product, len(resolved))
	for _, p := range resolved {
		byID[p.ID] = p
	}
	items := make([]eventhub.Item, 0, len(requested))
	for _, id := range requested {
		if p, ok := byID[id]; ok {
			items = append(items, eventhub.Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Color: p.Color})
			continue
		}
		items = append(items, eventhub.Item{ProductID: id})
	}
	return items
}
