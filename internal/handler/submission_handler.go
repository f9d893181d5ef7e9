package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/service"
)

// SubmissionHandler drives the listing submission wizard.
type SubmissionHandler struct {
	Submissions *service.SubmissionService
	Log         *logrus.Logger
}

func (h *SubmissionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/submissions")
	grp.POST("", h.Start)
	grp.POST("/:id/account", h.AttachAccount)
	grp.GET("/:id/resume", h.Resume)
	grp.GET("/:id/preview", middleware.RequireAuth(), h.Preview)
	grp.POST("/:id/checkout", middleware.RequireAuth(), h.Checkout)
}

type draftResponse struct {
	*model.SubmissionDraft
	Session *service.Session `json:"session,omitempty"`
}

// POST /api/submissions with the listing details.
func (h *SubmissionHandler) Start(c *gin.Context) {
	var req model.Listing
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	d, err := h.Submissions.Start(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// POST /api/submissions/:id/account. Signed-in callers send no body;
// anonymous callers send a sign-up payload.
func (h *SubmissionHandler) AttachAccount(c *gin.Context) {
	var signup *service.SignUpInput
	userID := middleware.UserID(c)
	if userID == "" {
		var req service.SignUpInput
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "sign in or sign up to continue"})
			return
		}
		signup = &req
	}

	d, sess, err := h.Submissions.AttachAccount(c.Request.Context(), c.Param("id"), userID, signup)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, draftResponse{SubmissionDraft: d, Session: sess})
}

func (h *SubmissionHandler) Preview(c *gin.Context) {
	d, err := h.Submissions.Preview(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *SubmissionHandler) Checkout(c *gin.Context) {
	d, err := h.Submissions.Checkout(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"submission_id": d.ID,
		"listing_id":    d.ListingID,
		"checkout_url":  d.CheckoutURL,
	})
}

// GET /api/submissions/:id/resume?session_id=
func (h *SubmissionHandler) Resume(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		badRequest(c, "session_id is required")
		return
	}
	status, err := h.Submissions.Resume(c.Request.Context(), c.Param("id"), sessionID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
