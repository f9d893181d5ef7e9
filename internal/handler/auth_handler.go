package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/service"
)

type AuthHandler struct {
	Auth *service.AuthService
	Log  *logrus.Logger
}

func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	grp := rg.Group("/auth")
	grp.POST("/signup", h.SignUp)
	grp.POST("/signin", h.SignIn)
	grp.POST("/password-reset", h.RequestPasswordReset)
	grp.POST("/password-reset/confirm", h.ConfirmPasswordReset)
	grp.POST("/verify-email", h.VerifyEmail)

	grp.POST("/signout", middleware.RequireAuth(), h.SignOut)
	grp.GET("/session", middleware.RequireAuth(), h.Session)
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var req service.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	sess, err := h.Auth.SignUp(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	sess, err := h.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *AuthHandler) SignOut(c *gin.Context) {
	if err := h.Auth.SignOut(c.Request.Context(), middleware.SessionID(c), middleware.TokenExpiry(c)); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) Session(c *gin.Context) {
	p, err := h.Auth.Profile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": middleware.SessionID(c),
		"expires_at": middleware.TokenExpiry(c),
		"profile":    p,
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset always answers 202 so account existence does not leak.
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email is required")
		return
	}
	if err := h.Auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.Log.WithError(err).Error("password reset request failed")
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "if the address is registered, a reset link is on its way"})
}

type resetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token and password are required")
		return
	}
	if err := h.Auth.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

type tokenRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "token is required")
		return
	}
	if err := h.Auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "email verified"})
}
