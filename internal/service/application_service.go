package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/metrics"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/repository"
)

type ApplicationInput struct {
	FullName     string     `json:"full_name"`
	Email        string     `json:"email"`
	Phone        string     `json:"phone"`
	MoveInDate   *time.Time `json:"move_in_date"`
	AnnualIncome *float64   `json:"annual_income"`
	Message      string     `json:"message"`
}

func (in *ApplicationInput) validate() error {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" {
		return &model.FieldError{Field: "full_name", Message: "is required"}
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &model.FieldError{Field: "email", Message: "must be a valid email address"}
	}
	if in.AnnualIncome != nil && *in.AnnualIncome < 0 {
		return &model.FieldError{Field: "annual_income", Message: "must not be negative"}
	}
	return nil
}

type ApplicationService struct {
	applications ApplicationStore
	listings     ListingStore
	profiles     ProfileStore
	mailer       Mailer
	notifier     *Notifier
	publicURL    string
	log          *logrus.Logger
}

func NewApplicationService(
	applications ApplicationStore,
	listings ListingStore,
	profiles ProfileStore,
	mailer Mailer,
	notifier *Notifier,
	publicURL string,
	log *logrus.Logger,
) *ApplicationService {
	return &ApplicationService{
		applications: applications,
		listings:     listings,
		profiles:     profiles,
		mailer:       mailer,
		notifier:     notifier,
		publicURL:    strings.TrimRight(publicURL, "/"),
		log:          log,
	}
}

// Submit files an application for a published listing. An applicant holds at
// most one open application per listing and cannot apply to their own.
func (s *ApplicationService) Submit(ctx context.Context, applicantID, listingID string, in ApplicationInput) (*model.Application, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.Submit: %w", err)
	}
	if l.Status != model.ListingPublished {
		return nil, fmt.Errorf("ApplicationService.Submit: %w", ErrNotFound)
	}
	if l.OwnerID == applicantID {
		return nil, fmt.Errorf("%w: cannot apply to your own listing", ErrForbidden)
	}

	open, err := s.applications.HasOpen(ctx, listingID, applicantID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.Submit: %w", err)
	}
	if open {
		return nil, fmt.Errorf("%w: an application for this listing is already open", ErrConflict)
	}

	a := &model.Application{
		ID:           uuid.NewString(),
		ListingID:    listingID,
		ApplicantID:  applicantID,
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		MoveInDate:   in.MoveInDate,
		AnnualIncome: in.AnnualIncome,
		Message:      strings.TrimSpace(in.Message),
		Status:       model.ApplicationSubmitted,
	}
	err = s.applications.Insert(ctx, a)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, fmt.Errorf("%w: an application for this listing is already open", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.Submit: %w", err)
	}

	s.notifyOwner(ctx, l, a)
	s.notifier.Refresh(ctx, l.OwnerID)
	return a, nil
}

func (s *ApplicationService) Mine(ctx context.Context, applicantID string) ([]model.Application, error) {
	out, err := s.applications.FindByApplicant(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.Mine: %w", err)
	}
	if out == nil {
		out = []model.Application{}
	}
	return out, nil
}

// ForListing lists applications received by a listing. Owner or admin only.
func (s *ApplicationService) ForListing(ctx context.Context, v Viewer, listingID string) ([]model.Application, error) {
	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.ForListing: %w", err)
	}
	if !v.canManage(l) {
		return nil, fmt.Errorf("ApplicationService.ForListing: %w", ErrForbidden)
	}
	out, err := s.applications.FindByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.ForListing: %w", err)
	}
	if out == nil {
		out = []model.Application{}
	}
	return out, nil
}

// UpdateStatus lets the listing owner review, accept or reject, and the
// applicant withdraw.
func (s *ApplicationService) UpdateStatus(ctx context.Context, userID, applicationID, status string) (*model.Application, error) {
	a, err := s.applications.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.UpdateStatus: %w", err)
	}
	l, err := s.listings.GetByID(ctx, a.ListingID)
	if err != nil {
		return nil, fmt.Errorf("ApplicationService.UpdateStatus: %w", err)
	}

	if status == model.ApplicationWithdrawn {
		if a.ApplicantID != userID {
			return nil, fmt.Errorf("ApplicationService.UpdateStatus: %w", ErrForbidden)
		}
	} else if l.OwnerID != userID {
		return nil, fmt.Errorf("ApplicationService.UpdateStatus: %w", ErrForbidden)
	}
	if !model.CanTransitionApplication(a.Status, status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, a.Status, status)
	}

	if err := s.applications.UpdateStatus(ctx, a.ID, status); err != nil {
		return nil, fmt.Errorf("ApplicationService.UpdateStatus: %w", err)
	}
	a.Status = status
	a.UpdatedAt = time.Now()

	s.notifier.Refresh(ctx, l.OwnerID)
	return a, nil
}

func (s *ApplicationService) notifyOwner(ctx context.Context, l *model.Listing, a *model.Application) {
	owner, err := s.profiles.GetByID(ctx, l.OwnerID)
	if err != nil {
		s.log.WithError(err).WithField("listing_id", l.ID).Warn("owner not loaded for application email")
		return
	}
	err = s.mailer.Send(ctx, owner.Email, email.TemplateApplicationReceived, email.Data{
		Name:         owner.FullName,
		ListingTitle: l.Title,
		Applicant:    a.FullName,
		Link:         s.publicURL + "/listings/" + l.ID + "/applications",
	})
	metrics.RecordExternalCall("email", err)
	if err != nil {
		s.log.WithError(err).WithField("application_id", a.ID).Warn("application email not sent")
	}
}
