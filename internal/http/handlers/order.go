package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/modehaus/lookbook-backend/internal/catalog"
	"github.com/modehaus/lookbook-backend/internal/clients/eventhub"
	"github.com/modehaus/lookbook-backend/internal/http/response"
	"github.com/modehaus/lookbook-backend/internal/outfit"
	pkgerrors "github.com/modehaus/lookbook-backend/internal/pkg/errors"
	"github.com/modehaus/lookbook-backend/internal/pkg/logger"
)

type OrderHandler struct {
	log       *logger.Logger
	catalog   *catalog.Index
	publisher eventhub.Publisher
}

func NewOrderHandler(log *logger.Logger, cat *catalog.Index, publisher eventhub.Publisher) *OrderHandler {
	return &OrderHandler{
		log:       log.With("handler", "OrderHandler"),
		catalog:   cat,
		publisher: publisher,
	}
}

type combinationRequest struct {
	UserID string   `json:"user_id"`
	Items  []string `json:"items"`
}

type combinationResponse struct {
	Success       bool   `json:"success"`
	CombinationID string `json:"combination_id"`
	Warning       string `json:"warning,omitempty"`
}

// PublishCombination emits a combination event for an outfit selection
// without generating an image.
func (h *OrderHandler) PublishCombination(c *gin.Context) {
	var req combinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_items_selected", pkgerrors.ErrInvalidArgument)
		return
	}

	combinationID, err := h.publisher.PublishCombination(c.Request.Context(), req.UserID, h.resolveItems(req.Items))
	warning := ""
	if err != nil {
		h.log.Warn("Combination event publish failed", "combination_id", combinationID, "error", err)
		warning = "combination event not published"
	}

	response.RespondOK(c, combinationResponse{
		Success:       true,
		CombinationID: combinationID,
		Warning:       warning,
	})
}

type orderRequest struct {
	UserID        string   `json:"user_id"`
	CombinationID string   `json:"combination_id"`
	Items         []string `json:"items"`
}

type orderResponse struct {
	Success       bool   `json:"success"`
	OrderID       string `json:"order_id"`
	CombinationID string `json:"combination_id"`
	Warning       string `json:"warning,omitempty"`
}

// PlaceOrder emits an order event. The order id is generated locally, so the
// caller always gets one back even when the sales stream is unreachable; the
// failure is carried as a warning instead.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if len(req.Items) == 0 {
		response.RespondError(c, http.StatusBadRequest, "no_items_selected", pkgerrors.ErrInvalidArgument)
		return
	}

	combinationID := req.CombinationID
	if combinationID == "" {
		combinationID = outfit.CombinationID(req.Items)
	}

	orderID, err := h.publisher.PublishOrder(c.Request.Context(), req.UserID, req.CombinationID, h.resolveItems(req.Items))
	warning := ""
	if err != nil {
		h.log.Warn("Order event publish failed", "order_id", orderID, "combination_id", combinationID, "error", err)
		warning = "order event not published"
	}

	response.RespondOK(c, orderResponse{
		Success:       true,
		OrderID:       orderID,
		CombinationID: combinationID,
		Warning:       warning,
	})
}

// resolveItems enriches the requested ids with catalog attributes where the
// product is known; unknown ids are kept bare so the combination id derived
// downstream matches the request.
func (h *OrderHandler) resolveItems(itemIDs []string) []eventhub.Item {
	items := make([]eventhub.Item, 0, len(itemIDs))
	for _, id := range itemIDs {
		if p, _, err := h.catalog.Lookup(id); err == nil {
			items = append(items, eventhub.Item{ProductID: p.ID, Name: p.Name, Price: p.Price, Color: p.Color})
			continue
		}
		items = append(items, eventhub.Item{ProductID: id})
	}
	return items
}
