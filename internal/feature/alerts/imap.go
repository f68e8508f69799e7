package alerts

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// Mail is the part of a message an alert is built from.
type Mail struct {
	From    string
	Subject string
}

// MailSource yields mails that have not been announced yet.
type MailSource interface {
	Unseen(ctx context.Context) ([]Mail, error)
}

// IMAPSource reads unseen mails from an IMAP mailbox over implicit TLS and
// flags them \Seen once fetched.
type IMAPSource struct {
	Server   string // host:port
	Username string
	Password string
	Mailbox  string
}

// Unseen opens a fresh connection, returns the unseen mails and marks them
// seen.
func (s *IMAPSource) Unseen(ctx context.Context) ([]Mail, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c, err := client.DialTLS(s.Server, &tls.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP server: %w", err)
	}
	defer c.Logout()

	if err := c.Login(s.Username, s.Password); err != nil {
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	if _, err := c.Select(s.Mailbox, false); err != nil {
		return nil, fmt.Errorf("selecting mailbox %s: %w", s.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching mailbox: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{imap.FetchEnvelope}, messages)
	}()

	var out []Mail
	for msg := range messages {
		if msg.Envelope == nil {
			continue
		}
		out = append(out, Mail{From: sender(msg.Envelope), Subject: msg.Envelope.Subject})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	seen := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.Store(seqset, seen, []interface{}{imap.SeenFlag}, nil); err != nil {
		return out, fmt.Errorf("marking messages seen: %w", err)
	}
	return out, nil
}

func sender(env *imap.Envelope) string {
	if len(env.From) == 0 {
		return "unknown"
	}
	if name := env.From[0].PersonalName; name != "" {
		return name
	}
	return env.From[0].Address()
}
