package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

// ApplicationHandler ties rental applications to the ApplicationService.
type ApplicationHandler struct {
	Applications *service.ApplicationService
	Log          *logrus.Logger
}

// RegisterRoutes registers:
//
//	POST  /api/listings/:id/applications
//	GET   /api/listings/:id/applications
//	GET   /api/me/applications
//	PATCH /api/applications/:id
func (h *ApplicationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("", middleware.RequireAuth())
	grp.POST("/listings/:id/applications", h.Submit)
	grp.GET("/listings/:id/applications", h.ForListing)
	grp.GET("/me/applications", h.Mine)
	grp.PATCH("/applications/:id", h.UpdateStatus)
}

func (h *ApplicationHandler) Submit(c *gin.Context) {
	var req service.ApplicationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	a, err := h.Applications.Submit(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *ApplicationHandler) ForListing(c *gin.Context) {
	out, err := h.Applications.ForListing(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ApplicationHandler) Mine(c *gin.Context) {
	out, err := h.Applications.Mine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	a, err := h.Applications.UpdateStatus(c.Request.Context(), middleware.UserID(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
