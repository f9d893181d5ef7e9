package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/service"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	Payments *service.PaymentService
	Log      *logrus.Logger
}

func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.Stripe)
}

// Stripe acknowledges verified deliveries. Signature failures get 400 and
// processing failures 500 so the provider retries.
func (h *WebhookHandler) Stripe(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "cannot read body"})
		return
	}

	err = h.Payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, payment.ErrInvalidSignature):
		h.Log.WithError(err).Warn("webhook signature rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
	default:
		h.Log.WithError(err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
	}
}
