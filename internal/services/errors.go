package services

import (
	"errors"
	"fmt"

	"repurposer/internal/repositories"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrNotFound            = errors.New("not found")
	ErrQuotaExceeded       = errors.New("free limit reached")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrMailNotConfigured   = errors.New("email service not configured")
	ErrStorage             = errors.New("storage failure")
	ErrInvalidOTP          = errors.New("invalid or expired otp")
	ErrOTPThrottled        = errors.New("otp resend throttled")
)

// ValidationError names the offending field. errors.Is(err, ErrValidation)
// holds for every ValidationError.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

var classified = []error{
	ErrValidation, ErrUnauthorized, ErrForbidden, ErrConflict, ErrNotFound,
	ErrQuotaExceeded, ErrUpstreamUnavailable, ErrMailNotConfigured, ErrStorage,
	ErrInvalidOTP, ErrOTPThrottled,
}

// classify maps repository errors onto the service taxonomy. Errors that are
// already classified pass through untouched; anything unknown is a storage
// failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range classified {
		if errors.Is(err, target) {
			return err
		}
	}
	switch {
	case errors.Is(err, repositories.ErrDuplicateEmail):
		return fmt.Errorf("%w: %w", ErrConflict, err)
	case errors.Is(err, repositories.ErrAccountNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
}
