package middleware

import (
	"errors"
	"net/http"

	"repurposer/internal/services"
)

var statusTable = []struct {
	err    error
	status int
	msg    string
}{
	{services.ErrValidation, http.StatusBadRequest, "Invalid request"},
	{services.ErrInvalidOTP, http.StatusBadRequest, "Invalid or expired OTP"},
	{services.ErrUnauthorized, http.StatusUnauthorized, "Invalid"},
	{services.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{services.ErrConflict, http.StatusConflict, "User exists"},
	{services.ErrNotFound, http.StatusNotFound, "User not found"},
	{services.ErrQuotaExceeded, http.StatusTooManyRequests, "Free limit reached. Upgrade."},
	{services.ErrOTPThrottled, http.StatusTooManyRequests, "Too many requests, try later"},
	{services.ErrMailNotConfigured, http.StatusServiceUnavailable, "Email service not configured"},
	{services.ErrUpstreamUnavailable, http.StatusBadGateway, "Upstream service unavailable"},
	{services.ErrStorage, http.StatusInternalServerError, "Internal error"},
}

// StatusFor maps a service error to an HTTP status and a client-safe message.
// Validation errors carry their own message.
func StatusFor(err error) (int, string) {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Message
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.msg
		}
	}
	return http.StatusInternalServerError, "Internal error"
}

func StatusOf(err error) int {
	status, _ := StatusFor(err)
	return status
}
