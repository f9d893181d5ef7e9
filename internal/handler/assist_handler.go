package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/ai"
	"rental-marketplace/internal/service"
)

// AssistHandler exposes listing copy generation and address lookup.
type AssistHandler struct {
	Assist *service.AssistService
	Log    *logrus.Logger
}

func (h *AssistHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/ai/listing-text", h.ListingText)
	rg.GET("/geo/autocomplete", h.Autocomplete)
	rg.GET("/geo/geocode", h.Geocode)
}

type listingTextRequest struct {
	NeighborhoodID string `json:"neighborhood_id"`
	ai.ListingPrompt
}

func (h *AssistHandler) ListingText(c *gin.Context) {
	var req listingTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	c.JSON(http.StatusOK, h.Assist.ListingText(c.Request.Context(), req.NeighborhoodID, req.ListingPrompt))
}

// GET /api/geo/autocomplete?q=
func (h *AssistHandler) Autocomplete(c *gin.Context) {
	out, err := h.Assist.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.Log.WithError(err).Warn("autocomplete failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "address lookup unavailable"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/geo/geocode?address=
func (h *AssistHandler) Geocode(c *gin.Context) {
	place, err := h.Assist.Geocode(c.Request.Context(), c.Query("address"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, place)
}
