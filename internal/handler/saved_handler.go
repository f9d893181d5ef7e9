package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

type SavedHandler struct {
	Saved *service.SavedService
	Log   *logrus.Logger
}

func (h *SavedHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("", middleware.RequireAuth())
	grp.POST("/listings/:id/save", h.Toggle)
	grp.GET("/listings/:id/save", h.IsSaved)
	grp.GET("/me/saved", h.List)
}

func (h *SavedHandler) Toggle(c *gin.Context) {
	saved, err := h.Saved.Toggle(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": c.Param("id"), "saved": saved})
}

func (h *SavedHandler) IsSaved(c *gin.Context) {
	saved, err := h.Saved.IsSaved(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"listing_id": c.Param("id"), "saved": saved})
}

func (h *SavedHandler) List(c *gin.Context) {
	out, err := h.Saved.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(out))
}
