package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/realtime"
	"rental-marketplace/internal/service"
)

// RealtimeHandler upgrades authenticated clients to a websocket channel that
// receives unread-count updates.
type RealtimeHandler struct {
	Hub      *realtime.Hub
	Notifier *service.Notifier
	Upgrader websocket.Upgrader
	Log      *logrus.Logger
}

func (h *RealtimeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/realtime", middleware.RequireAuth(), h.Connect)
}

// GET /api/realtime?access_token=
func (h *RealtimeHandler) Connect(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	userID := middleware.UserID(c)
	h.Hub.Register(userID, middleware.SessionID(c), conn)
	h.Notifier.Refresh(c.Request.Context(), userID)
}

// CheckOrigin returns an origin check allowing only the configured public URL.
// An empty publicURL accepts any origin.
func CheckOrigin(publicURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return publicURL == "" || origin == "" || origin == publicURL
	}
}
