package service

import "rental-marketplace/internal/model"

// Viewer identifies the caller of an operation. The zero value is anonymous.
type Viewer struct {
	UserID string
	Admin  bool
}

func (v Viewer) owns(l *model.Listing) bool {
	return v.UserID != "" && v.UserID == l.OwnerID
}

func (v Viewer) canManage(l *model.Listing) bool {
	return v.Admin || v.owns(l)
}

// canSee hides unpublished listings from everyone but their owner and admins.
func (v Viewer) canSee(l *model.Listing) bool {
	return l.Status == model.ListingPublished || v.canManage(l)
}
