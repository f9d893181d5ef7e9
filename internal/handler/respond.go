package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/geo"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/payment"
	"rental-marketplace/internal/service"
	"rental-marketplace/internal/store"
)

var statusBySentinel = []struct {
	err    error
	status int
}{
	{service.ErrNotFound, http.StatusNotFound},
	{store.ErrDraftNotFound, http.StatusNotFound},
	{geo.ErrNoMatch, http.StatusNotFound},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrInvalidTransition, http.StatusUnprocessableEntity},
	{store.ErrTokenInvalid, http.StatusBadRequest},
	{payment.ErrInvalidSignature, http.StatusBadRequest},
}

// respondError maps service errors to HTTP responses. Unexpected errors are
// logged and hidden from the client.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	var fe *model.FieldError
	if errors.As(err, &fe) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fe.Message, "field": fe.Field})
		return
	}
	for _, s := range statusBySentinel {
		if errors.Is(err, s.err) {
			c.JSON(s.status, gin.H{"error": publicMessage(err, s.err)})
			return
		}
	}

	log.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.Request.URL.Path,
	}).Error("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// publicMessage keeps "sentinel: detail" messages and drops wrapping prefixes.
func publicMessage(err, sentinel error) string {
	if msg := err.Error(); strings.HasPrefix(msg, sentinel.Error()) {
		return msg
	}
	return sentinel.Error()
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func paging(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(model.DefaultPageSize)))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	return limit, offset
}
