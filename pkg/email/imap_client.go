package email

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
)

const inboxFolder = "INBOX"

// IMAPClient opens sessions against the configured IMAP server
type IMAPClient struct {
	config *config.Config
}

// NewIMAPClient creates a new IMAP client
func NewIMAPClient(cfg *config.Config) *IMAPClient {
	return &IMAPClient{
		config: cfg,
	}
}

// connect establishes an authenticated connection to the IMAP server
func (ic *IMAPClient) connect() (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", ic.config.IMAPServer, ic.config.IMAPPort)

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", triage.ErrConnection, addr, err)
	}

	c.Timeout = ic.config.Timeout

	if err := c.Login(ic.config.EmailAddress, ic.config.EmailPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: authentication failed for %s: %v", triage.ErrConnection, ic.config.EmailAddress, err)
	}

	return c, nil
}

// Open connects, logs in and selects the inbox read-write. The caller must
// Close the session.
func (ic *IMAPClient) Open(_ context.Context) (*IMAPSession, error) {
	c, err := ic.connect()
	if err != nil {
		return nil, err
	}

	if _, err := c.Select(inboxFolder, false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("%w: failed to select %s: %v", triage.ErrConnection, inboxFolder, err)
	}

	return &IMAPSession{c: c}, nil
}

// IMAPSession is one logged-in connection with INBOX selected. Message ids
// are IMAP UIDs rendered in decimal.
type IMAPSession struct {
	c *client.Client
}

// Close logs out of the server
func (s *IMAPSession) Close() error {
	return s.c.Logout()
}

// ListUnread returns the UIDs of all messages without the \Seen flag,
// in server order.
func (s *IMAPSession) ListUnread(_ context.Context) ([]string, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, s.wrap(fmt.Errorf("search failed: %w", err))
	}

	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// FetchRaw downloads the full RFC 822 message without setting \Seen, so
// messages that are only escalated stay unread for a human.
func (s *IMAPSession) FetchRaw(_ context.Context, id string) ([]byte, error) {
	seqSet, err := uidSet(id)
	if err != nil {
		return nil, err
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqSet, items, messages)
	}()

	var raw []byte
	var readErr error
	for msg := range messages {
		if raw != nil || readErr != nil {
			continue
		}
		if r := msg.GetBody(section); r != nil {
			raw, readErr = io.ReadAll(r)
		}
	}

	if err := <-done; err != nil {
		return nil, s.wrap(fmt.Errorf("fetch failed: %w", err))
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read message body: %w", readErr)
	}
	if raw == nil {
		return nil, fmt.Errorf("message %s not found", id)
	}
	return raw, nil
}

// MarkSeen sets the \Seen flag on a message
func (s *IMAPSession) MarkSeen(_ context.Context, id string) error {
	seqSet, err := uidSet(id)
	if err != nil {
		return err
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	flags := []interface{}{imap.SeenFlag}
	if err := s.c.UidStore(seqSet, item, flags, nil); err != nil {
		return s.wrap(fmt.Errorf("failed to mark message seen: %w", err))
	}
	return nil
}

// MailboxCounts reports the total and unread number of messages in INBOX
func (s *IMAPSession) MailboxCounts(ctx context.Context) (total, unread int, err error) {
	if mbox := s.c.Mailbox(); mbox != nil {
		total = int(mbox.Messages)
	}
	ids, err := s.ListUnread(ctx)
	if err != nil {
		return 0, 0, err
	}
	return total, len(ids), nil
}

// wrap marks err as a connection failure once the server has dropped us,
// so the run stops instead of failing every remaining message.
func (s *IMAPSession) wrap(err error) error {
	if s.c.State() == imap.LogoutState {
		return fmt.Errorf("%w: %v", triage.ErrConnection, err)
	}
	return err
}

func uidSet(id string) (*imap.SeqSet, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil || uid == 0 {
		return nil, fmt.Errorf("invalid message uid %q", id)
	}
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uint32(uid))
	return seqSet, nil
}
