package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"fintrack/internal/core"
)

func TestValidateStruct(t *testing.T) {
	v := newValidator(core.DefaultPhonePrefix)

	tests := []struct {
		name      string
		dst       any
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing email",
			dst:       &SignInRequest{Password: "secret1"},
			wantField: "email",
			wantMsg:   "Email is required",
		},
		{
			name:      "bad email",
			dst:       &SignInRequest{Email: "not-an-email", Password: "secret1"},
			wantField: "email",
			wantMsg:   "Enter a valid email address",
		},
		{
			name:      "short password",
			dst:       &SignInRequest{Email: "asha@example.com", Password: "abc"},
			wantField: "password",
			wantMsg:   "Password must be at least 6 characters",
		},
		{
			name:      "bad phone",
			dst:       &OTPRequest{Phone: "12ab"},
			wantField: "phone",
			wantMsg:   "Enter a valid phone number",
		},
		{
			name:      "non numeric code",
			dst:       &OTPVerifyRequest{Phone: "9876543210", Code: "12ab56"},
			wantField: "code",
			wantMsg:   "Code must contain digits only",
		},
		{
			name:      "unknown type",
			dst:       &TransactionRequest{Name: "Rent", Amount: "10", Type: "transfer"},
			wantField: "type",
			wantMsg:   "Type must be one of: expense income",
		},
		{
			name: "valid local phone",
			dst:  &OTPRequest{Phone: "98765 43210"},
		},
		{
			name: "valid transaction without type",
			dst:  &TransactionRequest{Name: "Rent", Amount: "1799"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateStruct(v, tt.dst)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("validateStruct() error = %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("validateStruct() error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.wantField || verr.Message != tt.wantMsg {
				t.Errorf("got %s %q, want %s %q", verr.Field, verr.Message, tt.wantField, tt.wantMsg)
			}
		})
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: &ValidationError{Field: "name", Message: "Name is required"}, want: http.StatusUnprocessableEntity},
		{err: fmt.Errorf("build: %w", core.ErrInvalidAmount), want: http.StatusUnprocessableEntity},
		{err: core.ErrInvalidCredentials, want: http.StatusUnauthorized},
		{err: core.ErrOTPExpired, want: http.StatusUnauthorized},
		{err: core.ErrOTPExhausted, want: http.StatusTooManyRequests},
		{err: core.ErrOTPResendTooSoon, want: http.StatusTooManyRequests},
		{err: fmt.Errorf("tx 1: %w", core.ErrForbidden), want: http.StatusForbidden},
		{err: fmt.Errorf("tx 1: %w", core.ErrNotFound), want: http.StatusNotFound},
		{err: core.ErrConflict, want: http.StatusConflict},
		{err: errors.New("disk on fire"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, msg := statusFor(tt.err)
		if status != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, status, tt.want)
		}
		if status == http.StatusInternalServerError && msg != genericError {
			t.Errorf("internal error leaked message %q", msg)
		}
	}
}

func TestTemplateHelpers(t *testing.T) {
	if got := cssWidth(150); got != "width: 100.00%" {
		t.Errorf("cssWidth(150) = %q", got)
	}
	if got := cssWidth(-3); got != "width: 0.00%" {
		t.Errorf("cssWidth(-3) = %q", got)
	}
	if got := cssWidth(33.333); got != "width: 33.33%" {
		t.Errorf("cssWidth(33.333) = %q", got)
	}
	if got := amountInput(core.Money{Cents: -179950}); got != "1799.50" {
		t.Errorf("amountInput = %q, want 1799.50", got)
	}
}
