package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

// AdminHandler serves the moderation routes.
type AdminHandler struct {
	Admin *service.AdminService
	Log   *logrus.Logger
}

func (h *AdminHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/admin", middleware.RequireAdmin())
	grp.GET("/listings", h.Listings)
	grp.PUT("/listings/:id/publish", h.Publish)
	grp.PUT("/listings/:id/archive", h.Archive)
	grp.DELETE("/listings/:id", h.Delete)
	grp.GET("/users", h.Users)
}

// GET /api/admin/listings?status=pending&limit=20&offset=0
func (h *AdminHandler) Listings(c *gin.Context) {
	limit, offset := paging(c)
	out, err := h.Admin.Listings(c.Request.Context(), c.Query("status"), limit, offset)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(out))
}

// PUT /api/admin/listings/:id/publish
func (h *AdminHandler) Publish(c *gin.Context) {
	l, err := h.Admin.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.audit(c, "publish")
	c.JSON(http.StatusOK, toListingResponse(l))
}

// PUT /api/admin/listings/:id/archive
func (h *AdminHandler) Archive(c *gin.Context) {
	l, err := h.Admin.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.audit(c, "archive")
	c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *AdminHandler) Delete(c *gin.Context) {
	if err := h.Admin.DeleteListing(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	h.audit(c, "delete")
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

func (h *AdminHandler) Users(c *gin.Context) {
	limit, offset := paging(c)
	out, err := h.Admin.Users(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) audit(c *gin.Context, action string) {
	h.Log.WithFields(logrus.Fields{
		"admin_id":   middleware.UserID(c),
		"listing_id": c.Param("id"),
		"action":     action,
	}).Info("moderation")
}
