package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
)

const noSubject = "(no subject)"

// ParseMessage turns a raw RFC 822 message into a triage.Message. The body
// is the first text/plain part; HTML-only mail is converted to text.
func ParseMessage(id string, raw []byte) (triage.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return triage.Message{}, fmt.Errorf("failed to parse message: %w", err)
	}

	header := mr.Header
	msg := triage.Message{
		ID:          id,
		InReplyToID: strings.TrimSpace(header.Get("Message-Id")),
	}

	if subject, err := header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = header.Get("Subject")
	}
	if msg.Subject == "" {
		msg.Subject = noSubject
	}

	if from, err := header.Text("From"); err == nil {
		msg.Sender = from
	} else {
		msg.Sender = header.Get("From")
	}

	var plain, html string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) && p != nil {
				continue
			}
			break
		}

		h, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, err := h.ContentType()
		if err != nil && h.Get("Content-Type") == "" {
			ct = "text/plain"
		}
		switch {
		case ct == "text/plain" && plain == "":
			b, _ := io.ReadAll(p.Body)
			plain = string(b)
		case ct == "text/html" && html == "":
			b, _ := io.ReadAll(p.Body)
			html = string(b)
		}
		if plain != "" {
			break
		}
	}

	msg.Body = plain
	if msg.Body == "" && html != "" {
		text, err := ConvertHTMLToText(html)
		if err != nil {
			return msg, fmt.Errorf("failed to convert html body: %w", err)
		}
		msg.Body = text
	}

	return msg, nil
}
