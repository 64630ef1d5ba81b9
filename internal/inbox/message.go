package inbox

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	_ "github.com/emersion/go-message/charset" // registers non-UTF-8 charsets
	"github.com/emersion/go-message/mail"
)

// Email represents a parsed email message
type Email struct {
	UID        uint32 // IMAP UID for operations like move; zero for uploaded files
	MessageID  string
	From       string
	FromName   string
	Subject    string
	Body       string
	HTMLBody   string
	ReceivedAt time.Time
}

// Text returns the content to classify: the subject followed by the plain
// body, or the HTML body stripped of markup when there is no plain part.
func (e *Email) Text() string {
	body := strings.TrimSpace(e.Body)
	if body == "" && e.HTMLBody != "" {
		body = HTMLToText(e.HTMLBody)
	}
	subject := strings.TrimSpace(e.Subject)
	switch {
	case subject == "":
		return body
	case body == "":
		return subject
	}
	return subject + "\n" + body
}

// ParseMessage reads an RFC 5322 message, decoding transfer encodings and
// charsets. Attachments are skipped.
func ParseMessage(r io.Reader) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && mr == nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	defer mr.Close()

	email := &Email{}
	h := mr.Header
	if subject, err := h.Subject(); err == nil {
		email.Subject = subject
	} else {
		email.Subject = h.Get("Subject")
	}
	if id, err := h.MessageID(); err == nil {
		email.MessageID = id
	}
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
		email.FromName = from[0].Name
	}
	if date, err := h.Date(); err == nil {
		email.ReceivedAt = date
	}

	if err := readParts(mr, email); err != nil {
		return nil, err
	}
	return email, nil
}

// readParts fills the first plain and first HTML inline parts of email.
func readParts(mr *mail.Reader, email *Email) error {
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if email.Body != "" || email.HTMLBody != "" {
				return nil
			}
			return fmt.Errorf("failed to read message part: %w", err)
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(p.Body)
		if err != nil {
			continue
		}

		if strings.HasPrefix(ct, "text/plain") && email.Body == "" {
			email.Body = string(body)
		} else if strings.HasPrefix(ct, "text/html") && email.HTMLBody == "" {
			email.HTMLBody = string(body)
		}
	}
}

// HTMLToText returns the visible text of an HTML document with whitespace
// collapsed to single spaces.
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("script, style, head, noscript").Remove()
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(i int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return strings.Join(strings.Fields(doc.Text()), " ")
}
