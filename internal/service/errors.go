package service

import (
	"errors"

	"rental-marketplace/internal/repository"
)

var (
	// ErrNotFound aliases the repository sentinel so wrapped lookups match it.
	ErrNotFound          = repository.ErrNotFound
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("conflict")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidTransition = errors.New("invalid status transition")
)
