// Package notify delivers one-time codes and transaction notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

// OTPSender delivers a sign-in code to a phone number.
type OTPSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// LogSender writes codes to the log. For development only.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) SendOTP(ctx context.Context, phone, code string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "OTP issued", "phone", MaskPhone(phone), "code", code)
	return nil
}

// MailConfig holds SMTP settings for MailSender.
type MailConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	GatewayDomain string
	FallbackTo    string
}

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// MailSender mails codes to an email-to-SMS gateway, or to a fallback inbox
// when no gateway domain is configured.
type MailSender struct {
	dialer mailDialer
	cfg    MailConfig
}

func NewMailSender(cfg MailConfig) *MailSender {
	return &MailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (s *MailSender) SendOTP(ctx context.Context, phone, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	to, err := s.recipient(phone)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", "fintrack verification code")
	m.SetBody("text/plain", OTPMessage(code))

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	slog.InfoContext(ctx, "OTP sent", "phone", MaskPhone(phone), "via", "smtp")
	return nil
}

func (s *MailSender) recipient(phone string) (string, error) {
	if s.cfg.GatewayDomain != "" {
		return GatewayAddress(phone, s.cfg.GatewayDomain), nil
	}
	if s.cfg.FallbackTo != "" {
		return s.cfg.FallbackTo, nil
	}
	return "", fmt.Errorf("no OTP destination configured")
}

// GatewayAddress builds the email-to-SMS address for an E.164 number.
func GatewayAddress(phone, domain string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
	return digits + "@" + strings.TrimPrefix(domain, "@")
}

func OTPMessage(code string) string {
	return fmt.Sprintf("Your fintrack code is %s. It expires in a few minutes.", code)
}

// MaskPhone keeps the last four digits.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return phone
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
