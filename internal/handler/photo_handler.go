package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

const maxPhotoSize = 10 << 20

type PhotoHandler struct {
	Listings *service.ListingService
	Log      *logrus.Logger
}

func (h *PhotoHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings/:id/photo", h.DownloadPhoto)
	rg.POST("/listings/:id/photo", middleware.RequireAuth(), h.UploadPhoto)
}

func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxPhotoSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "photo must be 10MB or smaller"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cannot open file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	photoID, err := h.Listings.UploadPhoto(c.Request.Context(), viewer(c), c.Param("id"), file, fileHeader.Filename, contentType)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"photo_id": photoID})
}

func (h *PhotoHandler) DownloadPhoto(c *gin.Context) {
	data, contentType, err := h.Listings.Photo(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, contentType, data)
}
