// Package email delivers generated replies.
package email

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/mailtriage/mailtriage/internal/config"
)

type Message struct {
	To        string
	From      string
	Subject   string
	Body      string
	InReplyTo string // Message-ID of the email being answered, without angle brackets
}

type Result struct {
	Success   bool
	MessageID string
	Error     error
}

type Sender interface {
	Send(ctx context.Context, msg Message) Result
	Name() string
}

func NewSender(cfg config.EmailConfig) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPSender(cfg.SMTP), nil
	case "resend":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("resend requires an api_key")
		}
		return NewResendSender(cfg.APIKey), nil
	case "sendgrid":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("sendgrid requires an api_key")
		}
		return NewSendGridSender(cfg.APIKey), nil
	}
	return nil, fmt.Errorf("unknown email provider: %s (use smtp, resend or sendgrid)", cfg.Provider)
}

// ValidateEmail checks for injection characters and RFC 5322 compliance
func ValidateEmail(email string) error {
	if strings.ContainsAny(email, "\r\n,;") {
		return fmt.Errorf("email contains invalid characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}

func validateMessage(msg Message) error {
	if err := ValidateEmail(msg.From); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateEmail(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	// Reject headers with CRLF to prevent injection
	if strings.ContainsAny(msg.Subject, "\r\n") || strings.ContainsAny(msg.InReplyTo, "\r\n<>") {
		return fmt.Errorf("header contains invalid characters")
	}
	return nil
}

// threadHeaders returns the headers that attach a reply to the original
// conversation.
func threadHeaders(msg Message) map[string]string {
	if msg.InReplyTo == "" {
		return nil
	}
	id := "<" + msg.InReplyTo + ">"
	return map[string]string{
		"In-Reply-To": id,
		"References":  id,
	}
}

// ReplySubject prefixes subject unless it already carries the prefix.
func ReplySubject(prefix, subject string) string {
	subject = strings.TrimSpace(subject)
	if prefix == "" {
		return subject
	}
	if strings.HasPrefix(strings.ToLower(subject), strings.ToLower(strings.TrimSpace(prefix))) {
		return subject
	}
	return prefix + subject
}

// NewReply builds the reply to an email received from to.
func NewReply(from, to, subjectPrefix, subject, messageID, body string) Message {
	return Message{
		To:        to,
		From:      from,
		Subject:   ReplySubject(subjectPrefix, subject),
		Body:      body,
		InReplyTo: strings.Trim(messageID, "<>"),
	}
}
