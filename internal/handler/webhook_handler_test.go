package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v76/webhook"

	"rental-marketplace/internal/logger"
	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/service"
)

const webhookSecret = "whsec_handler_test"

func newWebhookRouter() *gin.Engine {
	log := logger.Discard()
	gateway := payment.NewStripeGateway("sk_test_x", "price_x", webhookSecret)
	h := &WebhookHandler{
		Payments: service.NewPaymentService(gateway, nil, nil, nil, nil, 30*24*time.Hour, "http://localhost", log),
		Log:      log,
	}
	r := gin.New()
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func TestWebhookHandler_BadSignature(t *testing.T) {
	r := newWebhookRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookHandler_IgnoredEventAcknowledged(t *testing.T) {
	r := newWebhookRouter()

	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: webhookSecret})

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
}
