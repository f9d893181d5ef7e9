package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/service"
)

// ListingHandler serves browsing and owner management of listings.
type ListingHandler struct {
	Listings      *service.ListingService
	Subscriptions *service.SubscriptionService
	Payments      *service.PaymentService
	Log           *logrus.Logger
}

func (h *ListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/listings", h.Browse)
	rg.GET("/listings/:id", h.GetListingByID)
	rg.GET("/listings/:id/subscription", h.SubscriptionBadge)

	auth := rg.Group("", middleware.RequireAuth())
	auth.POST("/listings", h.CreateListing)
	auth.PUT("/listings/:id", h.UpdateListing)
	auth.DELETE("/listings/:id", h.DeleteListing)
	auth.POST("/listings/:id/status", h.ChangeStatus)
	auth.POST("/listings/:id/checkout", h.Checkout)
	auth.GET("/me/listings", h.MyListings)
}

type listingResponse struct {
	model.Listing
	PhotoURL string `json:"photo_url,omitempty"`
}

func toListingResponse(l *model.Listing) listingResponse {
	resp := listingResponse{Listing: *l}
	if l.PhotoFileID != "" {
		resp.PhotoURL = fmt.Sprintf("/api/listings/%s/photo", l.ID)
	}
	return resp
}

func toListingResponses(list []model.Listing) []listingResponse {
	out := make([]listingResponse, 0, len(list))
	for i := range list {
		out = append(out, toListingResponse(&list[i]))
	}
	return out
}

func viewer(c *gin.Context) service.Viewer {
	return service.Viewer{UserID: middleware.UserID(c), Admin: middleware.IsAdmin(c)}
}

// GET /api/listings?neighborhood_id=&borough_id=&min_rent=&max_rent=&min_bedrooms=&pets_allowed=&q=&limit=&offset=
func (h *ListingHandler) Browse(c *gin.Context) {
	f := model.ListingFilter{
		NeighborhoodID: c.Query("neighborhood_id"),
		BoroughID:      c.Query("borough_id"),
		Query:          c.Query("q"),
	}
	if v, err := strconv.ParseFloat(c.Query("min_rent"), 64); err == nil {
		f.MinRent = &v
	}
	if v, err := strconv.ParseFloat(c.Query("max_rent"), 64); err == nil {
		f.MaxRent = &v
	}
	if v, err := strconv.Atoi(c.Query("min_bedrooms")); err == nil {
		f.MinBedrooms = &v
	}
	if v, err := strconv.ParseBool(c.Query("pets_allowed")); err == nil {
		f.PetsAllowed = &v
	}
	f.Limit, f.Offset = paging(c)

	list, err := h.Listings.Browse(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(list))
}

// GET /api/listings/:id
func (h *ListingHandler) GetListingByID(c *gin.Context) {
	l, err := h.Listings.Get(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

// GET /api/listings/:id/subscription
func (h *ListingHandler) SubscriptionBadge(c *gin.Context) {
	if _, err := h.Listings.Get(c.Request.Context(), viewer(c), c.Param("id")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	badge, err := h.Subscriptions.Badge(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, badge)
}

// POST /api/listings creates a draft owned by the caller.
func (h *ListingHandler) CreateListing(c *gin.Context) {
	var req model.Listing
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	l, err := h.Listings.CreateDraft(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(l))
}

// PUT /api/listings/:id
func (h *ListingHandler) UpdateListing(c *gin.Context) {
	var req model.Listing
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid payload")
		return
	}
	l, err := h.Listings.Update(c.Request.Context(), viewer(c), c.Param("id"), &req)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

// DELETE /api/listings/:id
func (h *ListingHandler) DeleteListing(c *gin.Context) {
	if err := h.Listings.Delete(c.Request.Context(), viewer(c), c.Param("id")); err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "deleted"})
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// POST /api/listings/:id/status
func (h *ListingHandler) ChangeStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "status is required")
		return
	}
	l, err := h.Listings.Transition(c.Request.Context(), viewer(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

// POST /api/listings/:id/checkout pays for a pending listing outside the
// submission wizard.
func (h *ListingHandler) Checkout(c *gin.Context) {
	session, err := h.Payments.CheckoutListing(c.Request.Context(), viewer(c), c.Param("id"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": session.ID, "checkout_url": session.URL})
}

// GET /api/me/listings
func (h *ListingHandler) MyListings(c *gin.Context) {
	list, err := h.Listings.Mine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponses(list))
}
