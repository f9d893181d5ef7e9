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
	"golang.org/x/crypto/bcrypt"

	"rental-marketplace/internal/email"
	"rental-marketplace/internal/middleware"
	"rental-marketplace/internal/model"
	"rental-marketplace/internal/repository"
	"rental-marketplace/internal/store"
)

const (
	MinPasswordLength = 8

	verifyEmailTTL   = 48 * time.Hour
	passwordResetTTL = time.Hour
)

type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
}

// Session is returned on sign-up and sign-in.
type Session struct {
	Token     string             `json:"token"`
	SessionID string             `json:"session_id"`
	Profile   *model.UserProfile `json:"profile"`
}

type AuthService struct {
	profiles  ProfileStore
	tokens    TokenStore
	issuer    TokenIssuer
	mailer    Mailer
	channels  Publisher
	publicURL string
	log       *logrus.Logger
}

func NewAuthService(
	profiles ProfileStore,
	tokens TokenStore,
	issuer TokenIssuer,
	mailer Mailer,
	channels Publisher,
	publicURL string,
	log *logrus.Logger,
) *AuthService {
	return &AuthService{
		profiles:  profiles,
		tokens:    tokens,
		issuer:    issuer,
		mailer:    mailer,
		channels:  channels,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// SignUp creates the account, emails a verification link and signs the user in.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.FullName = strings.TrimSpace(in.FullName)
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, &model.FieldError{Field: "email", Message: "must be a valid email address"}
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	if in.FullName == "" {
		return nil, &model.FieldError{Field: "full_name", Message: "is required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("AuthService.SignUp: hash: %w", err)
	}

	now := time.Now()
	p := &model.UserProfile{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(in.Email),
		FullName:     in.FullName,
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleUser,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return nil, fmt.Errorf("AuthService.SignUp: %w", err)
	}

	s.sendVerification(ctx, p)
	return s.newSession(p)
}

func (s *AuthService) SignIn(ctx context.Context, emailAddr, password string) (*Session, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("AuthService.SignIn: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}
	return s.newSession(p)
}

// SignOut revokes the session until its token would have expired and tears
// down its realtime channel.
func (s *AuthService) SignOut(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if err := s.tokens.RevokeSession(ctx, sessionID, time.Until(expiresAt)); err != nil {
		return fmt.Errorf("AuthService.SignOut: %w", err)
	}
	s.channels.Close(sessionID)
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*model.UserProfile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("AuthService.Profile: %w", err)
	}
	return p, nil
}

// RequestPasswordReset emails a reset link. Unknown addresses succeed silently.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	p, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(emailAddr))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("AuthService.RequestPasswordReset: %w", err)
	}

	token, err := s.tokens.Issue(ctx, store.PurposePasswordReset, p.ID, passwordResetTTL)
	if err != nil {
		return fmt.Errorf("AuthService.RequestPasswordReset: %w", err)
	}
	err = s.mailer.Send(ctx, p.Email, email.TemplatePasswordReset, email.Data{
		Name: p.FullName,
		Link: s.publicURL + "/reset-password?token=" + token,
	})
	if err != nil {
		return fmt.Errorf("AuthService.RequestPasswordReset: %w", err)
	}
	return nil
}

func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	userID, err := s.tokens.Consume(ctx, store.PurposePasswordReset, token)
	if err != nil {
		return fmt.Errorf("AuthService.ConfirmPasswordReset: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("AuthService.ConfirmPasswordReset: hash: %w", err)
	}
	if err := s.profiles.SetPasswordHash(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("AuthService.ConfirmPasswordReset: %w", err)
	}
	return nil
}

// VerifyEmail handles the link sent on sign-up.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	userID, err := s.tokens.Consume(ctx, store.PurposeVerifyEmail, token)
	if err != nil {
		return fmt.Errorf("AuthService.VerifyEmail: %w", err)
	}
	if err := s.profiles.MarkEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("AuthService.VerifyEmail: %w", err)
	}
	return nil
}

func (s *AuthService) newSession(p *model.UserProfile) (*Session, error) {
	roles := []string{middleware.RoleUser}
	if p.IsAdmin() {
		roles = append(roles, middleware.RoleAdmin)
	}
	token, sid, err := s.issuer.Issue(p.ID, p.Email, roles)
	if err != nil {
		return nil, fmt.Errorf("AuthService: %w", err)
	}
	return &Session{Token: token, SessionID: sid, Profile: p}, nil
}

func (s *AuthService) sendVerification(ctx context.Context, p *model.UserProfile) {
	token, err := s.tokens.Issue(ctx, store.PurposeVerifyEmail, p.ID, verifyEmailTTL)
	if err == nil {
		err = s.mailer.Send(ctx, p.Email, email.TemplateVerifyEmail, email.Data{
			Name: p.FullName,
			Link: s.publicURL + "/verify-email?token=" + token,
		})
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", p.ID).Warn("verification email not sent")
	}
}

func validatePassword(pw string) error {
	if len(pw) < MinPasswordLength {
		return &model.FieldError{Field: "password", Message: fmt.Sprintf("must be at least %d characters", MinPasswordLength)}
	}
	return nil
}
