package email

import (
	"context"
	"strings"
	"testing"

	"github.com/mailtriage/mailtriage/internal/config"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"suporte@example.com", false},
		{"Maria <maria@example.com.br>", false},
		{"not-an-email", true},
		{"a@example.com\r\nBcc: x@example.com", true},
		{"a@example.com, b@example.com", true},
		{"", true},
	}
	for _, tt := range tests {
		if err := ValidateEmail(tt.email); (err != nil) != tt.wantErr {
			t.Errorf("ValidateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestNewSender(t *testing.T) {
	tests := []struct {
		cfg      config.EmailConfig
		wantName string
		wantErr  bool
	}{
		{config.EmailConfig{}, "smtp", false},
		{config.EmailConfig{Provider: "smtp"}, "smtp", false},
		{config.EmailConfig{Provider: "resend", APIKey: "re_123"}, "resend", false},
		{config.EmailConfig{Provider: "sendgrid", APIKey: "SG.123"}, "sendgrid", false},
		{config.EmailConfig{Provider: "resend"}, "", true},
		{config.EmailConfig{Provider: "mailgun"}, "", true},
	}
	for _, tt := range tests {
		s, err := NewSender(tt.cfg)
		if (err != nil) != tt.wantErr {
			t.Errorf("NewSender(%q) error = %v, wantErr %v", tt.cfg.Provider, err, tt.wantErr)
			continue
		}
		if err == nil && s.Name() != tt.wantName {
			t.Errorf("NewSender(%q).Name() = %s, want %s", tt.cfg.Provider, s.Name(), tt.wantName)
		}
	}
}

func TestSendRejectsInvalidMessages(t *testing.T) {
	senders := []Sender{
		NewSMTPSender(config.SMTPConfig{Host: "localhost", Port: 2525}),
		NewResendSender("re_123"),
		NewSendGridSender("SG.123"),
	}
	bad := []Message{
		{From: "bad", To: "cliente@example.com", Subject: "Re: oi"},
		{From: "suporte@example.com", To: "cliente@example.com", Subject: "Re: oi\r\nBcc: x@example.com"},
		{From: "suporte@example.com", To: "cliente@example.com", Subject: "Re: oi", InReplyTo: "a>\r\nX: y"},
	}
	for _, s := range senders {
		for _, msg := range bad {
			if res := s.Send(context.Background(), msg); res.Success || res.Error == nil {
				t.Errorf("%s.Send(%+v) should fail validation", s.Name(), msg)
			}
		}
	}
}

func TestReplySubject(t *testing.T) {
	tests := []struct {
		prefix, subject, want string
	}{
		{"Re: ", "Status do protocolo", "Re: Status do protocolo"},
		{"Re: ", "RE: Status", "RE: Status"},
		{"Re: ", "  ", "Re: "},
		{"", "Status", "Status"},
	}
	for _, tt := range tests {
		if got := ReplySubject(tt.prefix, tt.subject); got != tt.want {
			t.Errorf("ReplySubject(%q, %q) = %q, want %q", tt.prefix, tt.subject, got, tt.want)
		}
	}
}

func TestNewReplyThreading(t *testing.T) {
	msg := NewReply("suporte@example.com", "cliente@example.com", "Re: ", "Anexo", "<abc@example.com>", "Recebido.")
	if msg.InReplyTo != "abc@example.com" {
		t.Errorf("InReplyTo = %q", msg.InReplyTo)
	}
	raw := buildMessage(msg, "id@example.com")
	for _, want := range []string{
		"Subject: Re: Anexo\r\n",
		"In-Reply-To: <abc@example.com>\r\n",
		"References: <abc@example.com>\r\n",
		"Message-ID: <id@example.com>\r\n",
		"\r\n\r\nRecebido.",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}

	if h := threadHeaders(Message{}); h != nil {
		t.Errorf("threadHeaders without InReplyTo = %v, want nil", h)
	}
}

func TestBuildMessageEncodesSubject(t *testing.T) {
	raw := buildMessage(Message{From: "a@example.com", To: "b@example.com", Subject: "Re: Atualização"}, "id@example.com")
	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Errorf("accented subject should be Q-encoded:\n%s", raw)
	}
}
