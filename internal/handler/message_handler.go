package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

type MessageHandler struct {
	Messages *service.MessageService
	Log      *logrus.Logger
}

func (h *MessageHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/messages", middleware.RequireAuth())
	grp.POST("", h.Send)
	grp.GET("", h.Inbox)
	grp.GET("/conversation", h.Conversation)
	grp.POST("/read", h.MarkRead)
	grp.GET("/unread", h.Unread)
}

type sendMessageRequest struct {
	ListingID   string `json:"listing_id" binding:"required"`
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "listing_id is required")
		return
	}
	m, err := h.Messages.Send(c.Request.Context(), middleware.UserID(c), req.ListingID, req.RecipientID, req.Body)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h *MessageHandler) Inbox(c *gin.Context) {
	out, err := h.Messages.Inbox(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// GET /api/messages/conversation?listing_id=&with=
func (h *MessageHandler) Conversation(c *gin.Context) {
	listingID, with := c.Query("listing_id"), c.Query("with")
	if listingID == "" || with == "" {
		badRequest(c, "listing_id and with are required")
		return
	}
	out, err := h.Messages.Conversation(c.Request.Context(), middleware.UserID(c), listingID, with)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type markReadRequest struct {
	ListingID     string `json:"listing_id" binding:"required"`
	CounterpartID string `json:"counterpart_id" binding:"required"`
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "listing_id and counterpart_id are required")
		return
	}
	n, err := h.Messages.MarkRead(c.Request.Context(), middleware.UserID(c), req.ListingID, req.CounterpartID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": n})
}

func (h *MessageHandler) Unread(c *gin.Context) {
	n, err := h.Messages.UnreadCount(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}
