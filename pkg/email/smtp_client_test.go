package email

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"testing"

	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	p := triage.DefaultPolicy()
	p.FromName = "Acme Support"
	return &config.Config{
		EmailAddress: "support@acme.test",
		SMTPServer:   "smtp.acme.test",
		SMTPPort:     587,
		Policy:       p,
	}
}

func TestComposeReply(t *testing.T) {
	sc := NewSMTPClient(testConfig())

	e := sc.compose(triage.Reply{
		To:        "jane@example.com",
		Subject:   "Re: Invoice question",
		Body:      "Thanks, we are on it.",
		InReplyTo: "<1234@example.com>",
	})

	assert.Equal(t, `"Acme Support" <support@acme.test>`, e.From)
	assert.Equal(t, []string{"jane@example.com"}, e.To)
	assert.Equal(t, "Re: Invoice question", e.Subject)
	assert.Equal(t, "Thanks, we are on it.", string(e.Text))
	assert.Equal(t, "<1234@example.com>", e.Headers.Get("In-Reply-To"))
	assert.Equal(t, "<1234@example.com>", e.Headers.Get("References"))
}

func TestComposeWithoutThreading(t *testing.T) {
	e := NewSMTPClient(testConfig()).compose(triage.Reply{To: "a@b.c", Subject: "Re: x", Body: "y"})
	assert.Empty(t, e.Headers.Get("In-Reply-To"))
	assert.Empty(t, e.Headers.Get("References"))
}

func TestSendReplyRequiresRecipient(t *testing.T) {
	err := NewSMTPClient(testConfig()).SendReply(context.Background(), triage.Reply{Subject: "Re: x"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, triage.ErrConnection)
}

func TestClassifySMTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		connection bool
	}{
		{"dial failure", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"auth rejected", &textproto.Error{Code: 535, Msg: "authentication failed"}, true},
		{"service unavailable", &textproto.Error{Code: 421, Msg: "try later"}, true},
		{"mailbox unavailable", &textproto.Error{Code: 550, Msg: "no such user"}, false},
		{"plain error", errors.New("message too large"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifySMTPError(fmt.Errorf("failed to send reply: %w", tt.err))
			assert.Equal(t, tt.connection, errors.Is(err, triage.ErrConnection))
			assert.Contains(t, err.Error(), tt.err.Error())
		})
	}
}
