package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"fintrack/internal/core"
)

const genericError = "Something went wrong, please try again"

// statusFor maps service errors to HTTP statuses. Unknown errors are 500 and
// their text is never shown to the user.
func statusFor(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Message
	case errors.Is(err, core.ErrInvalidAmount):
		return http.StatusUnprocessableEntity, "Enter an amount greater than zero"
	case errors.Is(err, core.ErrInvalidName):
		return http.StatusUnprocessableEntity, "Name is required and must be at most 100 characters"
	case errors.Is(err, core.ErrInvalidCategory):
		return http.StatusUnprocessableEntity, "Category must be at most 50 characters"
	case errors.Is(err, core.ErrInvalidType), errors.Is(err, core.ErrSignMismatch):
		return http.StatusUnprocessableEntity, "Type must be expense or income"
	case errors.Is(err, core.ErrInvalidEmail):
		return http.StatusUnprocessableEntity, "Enter a valid email address"
	case errors.Is(err, core.ErrInvalidPhone):
		return http.StatusUnprocessableEntity, "Enter a valid phone number"
	case errors.Is(err, core.ErrWeakPassword):
		return http.StatusUnprocessableEntity, "Password must be at least 6 characters"
	case errors.Is(err, core.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, core.ErrOTPExpired):
		return http.StatusUnauthorized, "The code has expired, request a new one"
	case errors.Is(err, core.ErrOTPInvalid):
		return http.StatusUnauthorized, "The code is not valid"
	case errors.Is(err, core.ErrOTPExhausted):
		return http.StatusTooManyRequests, "Too many attempts, try again later"
	case errors.Is(err, core.ErrOTPResendTooSoon):
		return http.StatusTooManyRequests, "A code was just sent, wait a moment before asking again"
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden, "You can only change your own transactions"
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict, "An account with this email already exists"
	default:
		return http.StatusInternalServerError, genericError
	}
}

// renderError writes an inline HTMX error fragment for err. Server errors
// are logged with the request context.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	ErrorResponse(status, msg).Write(w)
}

// writeJSONError writes {"error": "..."} with the mapped status.
func (s *Server) writeJSONError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "API request failed", "error", err, "method", r.Method, "path", r.URL.Path)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
