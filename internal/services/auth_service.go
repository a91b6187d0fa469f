package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/notify"
	"fintrack/internal/ports"
)

// Session is the result of a successful sign-in.
type Session struct {
	User      core.User
	Token     string
	ExpiresAt time.Time
}

type AuthConfig struct {
	OTPTTL      time.Duration
	OTPLength   int
	PhonePrefix string
}

// AuthService handles email/password accounts and phone sign-in by OTP.
type AuthService struct {
	users  ports.UserStore
	otps   ports.OTPStore
	tokens *auth.Tokens
	sender notify.OTPSender
	cfg    AuthConfig
	now    func() time.Time
}

func NewAuthService(users ports.UserStore, otps ports.OTPStore, tokens *auth.Tokens, sender notify.OTPSender, cfg AuthConfig) *AuthService {
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 5 * time.Minute
	}
	if cfg.OTPLength <= 0 {
		cfg.OTPLength = 6
	}
	if cfg.PhonePrefix == "" {
		cfg.PhonePrefix = core.DefaultPhonePrefix
	}
	if sender == nil {
		sender = notify.LogSender{}
	}
	return &AuthService{users: users, otps: otps, tokens: tokens, sender: sender, cfg: cfg, now: time.Now}
}

// SignUp creates an email account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (Session, error) {
	email = core.NormalizeEmail(email)
	if err := core.ValidateEmail(email); err != nil {
		return Session{}, err
	}
	if len(password) < core.MinPasswordLength {
		return Session{}, core.ErrWeakPassword
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.CreateUser(ctx, core.User{Email: email, PasswordHash: hash, CreatedAt: s.now().UTC()})
	if err != nil {
		return Session{}, fmt.Errorf("sign up: %w", err)
	}
	slog.InfoContext(ctx, "User signed up", "user_id", u.ID)
	return s.issue(u)
}

// SignIn checks an email and password. Unknown users and wrong passwords
// both report ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, core.NormalizeEmail(email))
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("sign in: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return Session{}, core.ErrInvalidCredentials
	}
	return s.issue(u)
}

// RequestOTP replaces any pending challenge for the phone and sends a new
// code. It returns the normalized phone number. Failed attempts of a live
// challenge carry over to the new one, and a locked phone stays locked
// until that challenge expires.
func (s *AuthService) RequestOTP(ctx context.Context, rawPhone string) (string, error) {
	phone, err := core.NormalizePhone(rawPhone, s.cfg.PhonePrefix)
	if err != nil {
		return "", err
	}
	now := s.now()
	attempts := 0
	prev, err := s.otps.GetOTP(ctx, phone)
	switch {
	case errors.Is(err, core.ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("request otp: %w", err)
	case !prev.Expired(now):
		if prev.Attempts >= core.MaxOTPAttempts {
			return "", core.ErrOTPExhausted
		}
		issuedAt := prev.ExpiresAt.Add(-s.cfg.OTPTTL)
		if now.Before(issuedAt.Add(core.OTPResendInterval)) {
			return "", core.ErrOTPResendTooSoon
		}
		attempts = prev.Attempts
	}

	code, err := auth.GenerateCode(s.cfg.OTPLength)
	if err != nil {
		return "", err
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return "", err
	}
	challenge := core.OTPChallenge{Phone: phone, CodeHash: hash, ExpiresAt: now.Add(s.cfg.OTPTTL).UTC(), Attempts: attempts}
	if err := s.otps.SaveOTP(ctx, challenge); err != nil {
		return "", fmt.Errorf("request otp: %w", err)
	}
	if err := s.sender.SendOTP(ctx, phone, code); err != nil {
		_ = s.otps.DeleteOTP(ctx, phone)
		return "", fmt.Errorf("deliver otp: %w", err)
	}
	return phone, nil
}

// VerifyOTP consumes a challenge. The first successful verification for a
// phone creates its account.
func (s *AuthService) VerifyOTP(ctx context.Context, rawPhone, code string) (Session, error) {
	phone, err := core.NormalizePhone(rawPhone, s.cfg.PhonePrefix)
	if err != nil {
		return Session{}, err
	}
	c, err := s.otps.GetOTP(ctx, phone)
	if errors.Is(err, core.ErrNotFound) {
		return Session{}, core.ErrOTPInvalid
	}
	if err != nil {
		return Session{}, fmt.Errorf("verify otp: %w", err)
	}

	if c.Expired(s.now()) {
		_ = s.otps.DeleteOTP(ctx, phone)
		return Session{}, core.ErrOTPExpired
	}
	// A locked challenge is kept until it expires so the lock holds.
	if c.Attempts >= core.MaxOTPAttempts {
		return Session{}, core.ErrOTPExhausted
	}
	if !auth.CheckPassword(c.CodeHash, code) {
		c.Attempts++
		if err := s.otps.SaveOTP(ctx, c); err != nil {
			return Session{}, fmt.Errorf("record otp attempt: %w", err)
		}
		if c.Attempts >= core.MaxOTPAttempts {
			slog.WarnContext(ctx, "OTP locked after failed attempts", "phone", notify.MaskPhone(phone))
			return Session{}, core.ErrOTPExhausted
		}
		return Session{}, core.ErrOTPInvalid
	}

	if err := s.otps.DeleteOTP(ctx, phone); err != nil {
		return Session{}, fmt.Errorf("consume otp: %w", err)
	}
	u, err := s.users.GetUserByPhone(ctx, phone)
	if errors.Is(err, core.ErrNotFound) {
		u, err = s.users.CreateUser(ctx, core.User{Phone: phone, CreatedAt: s.now().UTC()})
		if err == nil {
			slog.InfoContext(ctx, "User created from phone sign-in", "user_id", u.ID)
		}
	}
	if err != nil {
		return Session{}, fmt.Errorf("verify otp: %w", err)
	}
	return s.issue(u)
}

func (s *AuthService) issue(u core.User) (Session, error) {
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Token: token, ExpiresAt: exp}, nil
}
