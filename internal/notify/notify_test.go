package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"gopkg.in/gomail.v2"

	"fintrack/internal/amqp"
)

func TestGatewayAddress(t *testing.T) {
	tests := []struct {
		phone, domain, want string
	}{
		{"+919876543210", "sms.example.com", "919876543210@sms.example.com"},
		{"+919876543210", "@sms.example.com", "919876543210@sms.example.com"},
		{"+1 (555) 010-9999", "txt.example.net", "15550109999@txt.example.net"},
	}
	for _, tt := range tests {
		if got := GatewayAddress(tt.phone, tt.domain); got != tt.want {
			t.Errorf("GatewayAddress(%q, %q) = %q, want %q", tt.phone, tt.domain, got, tt.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("+919876543210"); got != "*********3210" {
		t.Errorf("MaskPhone() = %q", got)
	}
	if got := MaskPhone("123"); got != "123" {
		t.Errorf("MaskPhone(short) = %q", got)
	}
}

type recordingDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *recordingDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func TestMailSender_SendOTP(t *testing.T) {
	t.Run("gateway domain", func(t *testing.T) {
		d := &recordingDialer{}
		s := &MailSender{dialer: d, cfg: MailConfig{From: "otp@fintrack.local", GatewayDomain: "sms.example.com"}}
		if err := s.SendOTP(context.Background(), "+919876543210", "123456"); err != nil {
			t.Fatalf("SendOTP() error = %v", err)
		}
		if len(d.sent) != 1 {
			t.Fatalf("sent %d messages", len(d.sent))
		}
		if to := d.sent[0].GetHeader("To"); len(to) != 1 || to[0] != "919876543210@sms.example.com" {
			t.Errorf("To = %v", to)
		}
	})

	t.Run("fallback address", func(t *testing.T) {
		d := &recordingDialer{}
		s := &MailSender{dialer: d, cfg: MailConfig{From: "otp@fintrack.local", FallbackTo: "ops@example.com"}}
		if err := s.SendOTP(context.Background(), "+919876543210", "123456"); err != nil {
			t.Fatalf("SendOTP() error = %v", err)
		}
		if to := d.sent[0].GetHeader("To"); to[0] != "ops@example.com" {
			t.Errorf("To = %v", to)
		}
	})

	t.Run("no destination", func(t *testing.T) {
		s := &MailSender{dialer: &recordingDialer{}}
		if err := s.SendOTP(context.Background(), "+919876543210", "123456"); err == nil {
			t.Fatal("expected error without destination")
		}
	})

	t.Run("dial failure", func(t *testing.T) {
		s := &MailSender{dialer: &recordingDialer{err: errors.New("refused")}, cfg: MailConfig{FallbackTo: "ops@example.com"}}
		err := s.SendOTP(context.Background(), "+919876543210", "123456")
		if err == nil || !strings.Contains(err.Error(), "refused") {
			t.Fatalf("error = %v", err)
		}
	})
}

type fakeChannel struct {
	channel, content string
}

func (f *fakeChannel) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel, f.content = channelID, content
	return &discordgo.Message{Content: content}, nil
}

func TestDiscord_NotifyTransaction(t *testing.T) {
	f := &fakeChannel{}
	d := &Discord{session: f, channelID: "c1"}
	e := &amqp.TransactionEvent{
		ID: "t1", Action: amqp.ActionCreated, UserEmail: "asha@example.com",
		Name: "Netflix", Category: "Streaming", AmountCents: -179900,
	}
	if err := d.NotifyTransaction(context.Background(), e); err != nil {
		t.Fatalf("NotifyTransaction() error = %v", err)
	}
	if f.channel != "c1" {
		t.Errorf("channel = %q", f.channel)
	}
	if !strings.Contains(f.content, "asha@example.com added Netflix (Streaming): -₹1,799.00") {
		t.Errorf("content = %q", f.content)
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		action amqp.EventAction
		want   string
	}{
		{amqp.ActionUpdated, "edited Salary (Salary): +₹11,425.26"},
		{amqp.ActionDeleted, "removed Salary (Salary): +₹11,425.26"},
	}
	for _, tt := range tests {
		e := &amqp.TransactionEvent{Action: tt.action, Name: "Salary", Category: "Salary", AmountCents: 1142526}
		got := FormatEvent(e)
		if !strings.Contains(got, tt.want) || !strings.Contains(got, "someone") {
			t.Errorf("FormatEvent(%s) = %q", tt.action, got)
		}
	}
}
