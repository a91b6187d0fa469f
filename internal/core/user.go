package core

import (
	"errors"
	"strings"
	"time"
)

const DefaultPhonePrefix = "+91"

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPhone       = errors.New("invalid phone number")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPInvalid         = errors.New("invalid verification code")
	ErrOTPExpired         = errors.New("verification code expired")
	ErrOTPExhausted       = errors.New("too many verification attempts")
	ErrOTPResendTooSoon   = errors.New("verification code sent too recently")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const MinPasswordLength = 6

// MaxOTPAttempts is how many wrong codes a phone gets until its challenge
// expires. Requesting a new code does not reset the count.
const MaxOTPAttempts = 5

// OTPResendInterval is the minimum gap between two codes for one phone.
const OTPResendInterval = 30 * time.Second

type User struct {
	ID           string
	Email        string
	Phone        string
	PasswordHash string
	CreatedAt    time.Time
}

// DisplayName prefers the email, then the phone.
func (u User) DisplayName() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Phone
}

// OTPChallenge is a pending phone sign-in.
type OTPChallenge struct {
	Phone     string
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

func (c OTPChallenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidateEmail is a shape check only: one @ with text on both sides.
func ValidateEmail(s string) error {
	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 || strings.ContainsAny(s, " \t") {
		return ErrInvalidEmail
	}
	return nil
}

// NormalizePhone returns an E.164 number. Numbers without a leading plus get
// prefix prepended; spaces, dashes and parentheses are ignored.
func NormalizePhone(raw, prefix string) (string, error) {
	s := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
	if s == "" {
		return "", ErrInvalidPhone
	}
	if !strings.HasPrefix(s, "+") {
		if prefix == "" {
			prefix = DefaultPhonePrefix
		}
		s = prefix + strings.TrimLeft(s, "0")
	}
	digits := s[1:]
	if len(digits) < 10 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return s, nil
}
