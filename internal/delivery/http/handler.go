package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartcart/backend/internal/domain"
	"github.com/smartcart/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search *usecase.SearchService
}

// NewHandler creates a new HTTP handler
func NewHandler(search *usecase.SearchService) *Handler {
	return &Handler{search: search}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "smartcart-backend",
		"version": "1.0.0",
	})
}

// batchSearchRequest is the boundary contract for a batch price search
type batchSearchRequest struct {
	Location string   `json:"location" binding:"required"`
	Items    []string `json:"items" binding:"required,min=1"`
}

// itemSearchRequest is the single-item variant
type itemSearchRequest struct {
	Location string `json:"location" binding:"required"`
	Item     string `json:"item" binding:"required"`
}

// SearchPrices handles a batch price search: every requested item yields
// exactly one result, and the cart summary covers the whole list. Only a
// session that could not be created fails the request as a whole.
func (h *Handler) SearchPrices(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"status":  domain.StatusError,
			"message": "price search service not configured",
		})
		return
	}

	var req batchSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  domain.StatusError,
			"message": "location and a non-empty items list are required",
		})
		return
	}

	results, summary, err := h.search.SearchBatch(c.Request.Context(), req.Location, req.Items)
	if err != nil {
		status, message := searchErrorResponse(err)
		c.JSON(status, gin.H{
			"status":  domain.StatusError,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       domain.StatusSuccess,
		"message":      "All items processed",
		"results":      results,
		"cart_summary": summary,
	})
}

// SearchItemPrice handles a single-item price search without a cart summary
func (h *Handler) SearchItemPrice(c *gin.Context) {
	if h.search == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"status":  domain.StatusError,
			"message": "price search service not configured",
		})
		return
	}

	var req itemSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status":  domain.StatusError,
			"message": "location and item are required",
		})
		return
	}

	result, err := h.search.SearchItem(c.Request.Context(), req.Location, req.Item)
	if err != nil {
		status, message := searchErrorResponse(err)
		c.JSON(status, gin.H{
			"status":  domain.StatusError,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// searchErrorResponse maps service errors to HTTP status and message. Only
// known sentinels get a descriptive body; anything else is logged and
// reported generically so internal detail never reaches the client.
func searchErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "invalid request parameters"
	case errors.Is(err, domain.ErrSessionUnavailable):
		return http.StatusBadGateway, "price search session could not be created"
	default:
		log.Printf("[HTTP] price search failed: %v", err)
		return http.StatusInternalServerError, "internal error while searching prices"
	}
}
