package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage/memory"
)

type capturingSender struct {
	phone, code string
	err         error
}

func (c *capturingSender) SendOTP(_ context.Context, phone, code string) error {
	c.phone, c.code = phone, code
	return c.err
}

func newAuthService(t *testing.T) (*AuthService, *memory.Store, *capturingSender) {
	t.Helper()
	store := memory.New()
	sender := &capturingSender{}
	tokens := auth.NewTokens("0123456789abcdef", time.Hour)
	svc := NewAuthService(store, store, tokens, sender, AuthConfig{OTPTTL: 5 * time.Minute, OTPLength: 6, PhonePrefix: "+91"})
	return svc, store, sender
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newAuthService(t)

	sess, err := svc.SignUp(ctx, " Asha@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if sess.Token == "" || sess.User.Email != "asha@example.com" || sess.ExpiresAt.IsZero() {
		t.Fatalf("SignUp() session = %+v", sess)
	}

	if _, err := svc.SignUp(ctx, "asha@example.com", "another1"); !errors.Is(err, core.ErrConflict) {
		t.Errorf("duplicate SignUp() error = %v, want ErrConflict", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"correct password", "ASHA@example.com", "secret1", nil},
		{"wrong password", "asha@example.com", "secret2", core.ErrInvalidCredentials},
		{"unknown user", "ravi@example.com", "secret1", core.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.SignIn(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SignIn() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.User.ID != sess.User.ID {
				t.Errorf("SignIn() user = %v, want %v", got.User.ID, sess.User.ID)
			}
		})
	}
}

func TestAuthService_SignUpValidation(t *testing.T) {
	svc, _, _ := newAuthService(t)
	if _, err := svc.SignUp(context.Background(), "not-an-email", "secret1"); !errors.Is(err, core.ErrInvalidEmail) {
		t.Errorf("SignUp(bad email) error = %v", err)
	}
	if _, err := svc.SignUp(context.Background(), "asha@example.com", "123"); !errors.Is(err, core.ErrWeakPassword) {
		t.Errorf("SignUp(short password) error = %v", err)
	}
}

func TestAuthService_OTPFlow(t *testing.T) {
	ctx := context.Background()
	svc, store, sender := newAuthService(t)

	phone, err := svc.RequestOTP(ctx, "98765 43210")
	if err != nil {
		t.Fatalf("RequestOTP() error = %v", err)
	}
	if phone != "+919876543210" || sender.phone != phone || len(sender.code) != 6 {
		t.Fatalf("RequestOTP() phone = %q, sent to %q code %q", phone, sender.phone, sender.code)
	}

	wrong := "000000"
	if sender.code == wrong {
		wrong = "111111"
	}
	if _, err := svc.VerifyOTP(ctx, phone, wrong); !errors.Is(err, core.ErrOTPInvalid) {
		t.Fatalf("VerifyOTP(wrong) error = %v", err)
	}
	if c, _ := store.GetOTP(ctx, phone); c.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", c.Attempts)
	}

	sess, err := svc.VerifyOTP(ctx, "9876543210", sender.code)
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if sess.User.Phone != phone || sess.User.Email != "" || sess.Token == "" {
		t.Fatalf("VerifyOTP() session = %+v", sess)
	}
	if _, err := store.GetOTP(ctx, phone); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("challenge should be consumed, got %v", err)
	}

	// A second sign-in reuses the account.
	if _, err := svc.RequestOTP(ctx, phone); err != nil {
		t.Fatalf("RequestOTP() again error = %v", err)
	}
	again, err := svc.VerifyOTP(ctx, phone, sender.code)
	if err != nil {
		t.Fatalf("VerifyOTP() again error = %v", err)
	}
	if again.User.ID != sess.User.ID {
		t.Errorf("user = %v, want %v", again.User.ID, sess.User.ID)
	}
}

func TestAuthService_OTPFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("no challenge", func(t *testing.T) {
		svc, _, _ := newAuthService(t)
		if _, err := svc.VerifyOTP(ctx, "+919876543210", "123456"); !errors.Is(err, core.ErrOTPInvalid) {
			t.Errorf("error = %v, want ErrOTPInvalid", err)
		}
	})

	t.Run("invalid phone", func(t *testing.T) {
		svc, _, _ := newAuthService(t)
		if _, err := svc.RequestOTP(ctx, "12"); !errors.Is(err, core.ErrInvalidPhone) {
			t.Errorf("error = %v, want ErrInvalidPhone", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		svc, store, sender := newAuthService(t)
		phone, err := svc.RequestOTP(ctx, "+919876543210")
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
		svc.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
		if _, err := svc.VerifyOTP(ctx, phone, sender.code); !errors.Is(err, core.ErrOTPExpired) {
			t.Fatalf("error = %v, want ErrOTPExpired", err)
		}
		if _, err := store.GetOTP(ctx, phone); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expired challenge should be deleted, got %v", err)
		}
	})

	t.Run("locked after max attempts", func(t *testing.T) {
		svc, store, sender := newAuthService(t)
		phone := "+919876543210"
		hash, _ := auth.HashPassword("424242")
		store.SaveOTP(ctx, core.OTPChallenge{Phone: phone, CodeHash: hash, ExpiresAt: time.Now().Add(time.Minute)})

		for i := 1; i < core.MaxOTPAttempts; i++ {
			if _, err := svc.VerifyOTP(ctx, phone, "000000"); !errors.Is(err, core.ErrOTPInvalid) {
				t.Fatalf("attempt %d error = %v, want ErrOTPInvalid", i, err)
			}
		}
		if _, err := svc.VerifyOTP(ctx, phone, "000000"); !errors.Is(err, core.ErrOTPExhausted) {
			t.Fatalf("final attempt error = %v, want ErrOTPExhausted", err)
		}
		// The correct code no longer works once locked.
		if _, err := svc.VerifyOTP(ctx, phone, "424242"); !errors.Is(err, core.ErrOTPExhausted) {
			t.Errorf("after lock error = %v, want ErrOTPExhausted", err)
		}
		// Asking for a new code does not lift the lock.
		if _, err := svc.RequestOTP(ctx, phone); !errors.Is(err, core.ErrOTPExhausted) {
			t.Errorf("RequestOTP() while locked error = %v, want ErrOTPExhausted", err)
		}
		if sender.code != "" {
			t.Errorf("no code should be sent while locked, sent %q", sender.code)
		}
		// The lock ends with the challenge.
		svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
		if _, err := svc.RequestOTP(ctx, phone); err != nil {
			t.Errorf("RequestOTP() after expiry error = %v", err)
		}
		if c, _ := store.GetOTP(ctx, phone); c.Attempts != 0 {
			t.Errorf("attempts after expiry = %d, want 0", c.Attempts)
		}
	})

	t.Run("resend keeps failed attempts", func(t *testing.T) {
		svc, store, sender := newAuthService(t)
		start := time.Now()
		svc.now = func() time.Time { return start }
		phone, err := svc.RequestOTP(ctx, "+919876543210")
		if err != nil {
			t.Fatalf("RequestOTP() error = %v", err)
		}
		first := sender.code
		wrong := "000000"
		if first == wrong {
			wrong = "111111"
		}
		for i := 0; i < 2; i++ {
			if _, err := svc.VerifyOTP(ctx, phone, wrong); !errors.Is(err, core.ErrOTPInvalid) {
				t.Fatalf("attempt %d error = %v", i, err)
			}
		}

		if _, err := svc.RequestOTP(ctx, phone); !errors.Is(err, core.ErrOTPResendTooSoon) {
			t.Fatalf("immediate resend error = %v, want ErrOTPResendTooSoon", err)
		}

		svc.now = func() time.Time { return start.Add(core.OTPResendInterval) }
		if _, err := svc.RequestOTP(ctx, phone); err != nil {
			t.Fatalf("resend error = %v", err)
		}
		c, err := store.GetOTP(ctx, phone)
		if err != nil || c.Attempts != 2 {
			t.Fatalf("challenge after resend = %+v, %v, want 2 attempts", c, err)
		}
		if _, err := svc.VerifyOTP(ctx, phone, sender.code); err != nil {
			t.Fatalf("VerifyOTP() with resent code error = %v", err)
		}
	})

	t.Run("delivery failure drops challenge", func(t *testing.T) {
		svc, store, sender := newAuthService(t)
		sender.err = errors.New("smtp down")
		if _, err := svc.RequestOTP(ctx, "+919876543210"); err == nil {
			t.Fatal("expected delivery error")
		}
		if _, err := store.GetOTP(ctx, "+919876543210"); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("challenge should be removed, got %v", err)
		}
	})
}
