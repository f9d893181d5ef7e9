package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/service"
)

type NeighborhoodHandler struct {
	Neighborhoods *service.NeighborhoodService
	Log           *logrus.Logger
}

func (h *NeighborhoodHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/boroughs", h.ListBoroughs)
	rg.GET("/neighborhoods", h.ListNeighborhoods)
	rg.GET("/neighborhoods/:id", h.GetNeighborhood)

	admin := rg.Group("/admin", middleware.RequireAdmin())
	admin.POST("/boroughs", h.CreateBorough)
	admin.POST("/neighborhoods", h.CreateNeighborhood)
}

func (h *NeighborhoodHandler) ListBoroughs(c *gin.Context) {
	out, err := h.Neighborhoods.Boroughs(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/neighborhoods?borough_id=
func (h *NeighborhoodHandler) ListNeighborhoods(c *gin.Context) {
	out, err := h.Neighborhoods.Neighborhoods(c.Request.Context(), c.Query("borough_id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *NeighborhoodHandler) GetNeighborhood(c *gin.Context) {
	n, err := h.Neighborhoods.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

type boroughRequest struct {
	Name string `json:"name"`
}

func (h *NeighborhoodHandler) CreateBorough(c *gin.Context) {
	var req boroughRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	b, err := h.Neighborhoods.CreateBorough(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (h *NeighborhoodHandler) CreateNeighborhood(c *gin.Context) {
	var req model.Neighborhood
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	n, err := h.Neighborhoods.CreateNeighborhood(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}
