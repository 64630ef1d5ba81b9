package inbox

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/mailtriage/mailtriage/internal/config"
)

// fetchBatchSize bounds how many messages are requested per UID FETCH.
const fetchBatchSize = 50

// Monitor handles IMAP connection and mailbox access
type Monitor struct {
	config config.InboxConfig
	client *client.Client
	seen   map[uint32]bool // UIDs already handed to a watch callback
}

// NewMonitor creates a new inbox monitor
func NewMonitor(cfg config.InboxConfig) *Monitor {
	return &Monitor{
		config: cfg,
		seen:   make(map[uint32]bool),
	}
}

// Connect establishes IMAP connection
func (m *Monitor) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	log.Printf("Connecting to IMAP server %s...", addr)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	log.Printf("Connected, logging in as %s...", m.config.Email)

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	log.Printf("Login successful")
	return nil
}

// Disconnect closes the IMAP connection
func (m *Monitor) Disconnect() error {
	if m.client != nil {
		return m.client.Logout()
	}
	return nil
}

// FetchRecentEmails fetches emails received in the last N days from the
// configured folder. Messages are fetched with PEEK so triage does not
// mark them as read.
func (m *Monitor) FetchRecentEmails(ctx context.Context, days int) ([]Email, error) {
	if m.client == nil {
		return nil, fmt.Errorf("not connected to IMAP server")
	}

	mbox, err := m.client.Select(m.config.Folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}

	log.Printf("Mailbox %s has %d messages", m.config.Folder, mbox.Messages)

	if mbox.Messages == 0 {
		return nil, nil
	}

	since := time.Now().AddDate(0, 0, -days)
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	log.Printf("Found %d emails since %s", len(uids), since.Format("2006-01-02"))

	var emails []Email
	for i := 0; i < len(uids); i += fetchBatchSize {
		if err := ctx.Err(); err != nil {
			return emails, err
		}

		end := i + fetchBatchSize
		if end > len(uids) {
			end = len(uids)
		}

		batch, err := m.fetchUIDs(uids[i:end])
		if err != nil {
			return nil, err
		}
		emails = append(emails, batch...)
	}

	return emails, nil
}

func (m *Monitor) fetchUIDs(uids []uint32) ([]Email, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var emails []Email
	for msg := range messages {
		email, err := parseIMAPMessage(msg, section)
		if err != nil {
			log.Printf("Warning: failed to parse message: %v", err)
			continue
		}
		if email != nil {
			emails = append(emails, *email)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return emails, nil
}

// parseIMAPMessage converts an IMAP message to our Email struct. Envelope
// fields win over the ones parsed from the body.
func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	email := &Email{}
	if r := msg.GetBody(section); r != nil {
		parsed, err := ParseMessage(r)
		if err != nil {
			log.Printf("Warning: message %d has no readable body: %v", msg.Uid, err)
		} else {
			email = parsed
		}
	}

	email.UID = msg.Uid
	if msg.Envelope.Subject != "" {
		email.Subject = msg.Envelope.Subject
	}
	if !msg.Envelope.Date.IsZero() {
		email.ReceivedAt = msg.Envelope.Date
	}
	if msg.Envelope.MessageId != "" {
		email.MessageID = msg.Envelope.MessageId
	}
	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		email.From = from.Address()
		email.FromName = from.PersonalName
	}

	return email, nil
}

// WatchForNewEmails monitors the folder with IDLE and calls callback once
// for every message that arrives. It blocks until ctx is cancelled.
func (m *Monitor) WatchForNewEmails(ctx context.Context, callback func(Email)) error {
	if m.client == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	if _, err := m.client.Select(m.config.Folder, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	// Messages already in the folder are not new.
	existing, err := m.client.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return fmt.Errorf("failed to list existing messages: %w", err)
	}
	for _, uid := range existing {
		m.seen[uid] = true
	}

	updates := make(chan client.Update, 16)
	m.client.Updates = updates
	defer func() { m.client.Updates = nil }()

	stop := make(chan struct{})
	idleDone := make(chan error, 1)

	go func() {
		idleDone <- m.client.Idle(stop, nil)
	}()

	log.Printf("Watching %s for new emails (press Ctrl+C to stop)...", m.config.Folder)

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-idleDone
			return ctx.Err()
		case update := <-updates:
			u, ok := update.(*client.MailboxUpdate)
			if !ok {
				continue
			}
			log.Printf("New mail detected: %d messages", u.Mailbox.Messages)
			close(stop)
			<-idleDone

			emails, err := m.FetchRecentEmails(ctx, 1)
			if err != nil {
				log.Printf("Error fetching new email: %v", err)
			}
			for _, email := range emails {
				if m.seen[email.UID] {
					continue
				}
				m.seen[email.UID] = true
				callback(email)
			}

			stop = make(chan struct{})
			go func() {
				idleDone <- m.client.Idle(stop, nil)
			}()
		case err := <-idleDone:
			if err != nil {
				return fmt.Errorf("IDLE error: %w", err)
			}
			return nil
		}
	}
}

// EnsureFolderExists creates a folder/label if it doesn't already exist
func (m *Monitor) EnsureFolderExists(name string) error {
	if m.client == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.client.List("", "*", mailboxes)
	}()

	exists := false
	for mbox := range mailboxes {
		if strings.EqualFold(mbox.Name, name) {
			exists = true
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	if exists {
		return nil
	}

	if err := m.client.Create(name); err != nil {
		return fmt.Errorf("failed to create folder '%s': %w", name, err)
	}

	log.Printf("Created folder '%s'", name)
	return nil
}

// ArchiveEmails moves triaged emails to the archive folder
func (m *Monitor) ArchiveEmails(uids []uint32, folder string) error {
	if m.client == nil {
		return fmt.Errorf("not connected to IMAP server")
	}

	if len(uids) == 0 {
		return nil
	}

	if _, err := m.client.Select(m.config.Folder, false); err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	// MOVE (RFC 6851) when available, COPY + DELETE otherwise
	if err := m.client.UidMove(seqSet, folder); err != nil {
		log.Printf("MOVE not supported, falling back to COPY+DELETE: %v", err)

		if err := m.client.UidCopy(seqSet, folder); err != nil {
			return fmt.Errorf("failed to copy emails to '%s': %w", folder, err)
		}

		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.DeletedFlag}
		if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
			return fmt.Errorf("failed to mark emails as deleted: %w", err)
		}

		if err := m.client.Expunge(nil); err != nil {
			return fmt.Errorf("failed to expunge deleted emails: %w", err)
		}
	}

	log.Printf("Archived %d emails to '%s'", len(uids), folder)
	return nil
}
