package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"

	"github.com/jordan-wright/email"
	"github.com/prasanthmj/inboxtriage/pkg/config"
	"github.com/prasanthmj/inboxtriage/pkg/triage"
)

// implicitTLSPort is the SMTPS port; every other port uses STARTTLS
const implicitTLSPort = 465

// SMTPClient sends automatic replies
type SMTPClient struct {
	config *config.Config
}

// NewSMTPClient creates a new SMTP client
func NewSMTPClient(cfg *config.Config) *SMTPClient {
	return &SMTPClient{
		config: cfg,
	}
}

// SendReply sends one reply. There is no retry.
func (sc *SMTPClient) SendReply(_ context.Context, r triage.Reply) error {
	if r.To == "" {
		return fmt.Errorf("reply has no recipient")
	}

	e := sc.compose(r)

	addr := fmt.Sprintf("%s:%d", sc.config.SMTPServer, sc.config.SMTPPort)
	auth := smtp.PlainAuth("", sc.config.EmailAddress, sc.config.EmailPassword, sc.config.SMTPServer)
	tlsConfig := &tls.Config{ServerName: sc.config.SMTPServer}

	var err error
	if sc.config.SMTPPort == implicitTLSPort {
		err = e.SendWithTLS(addr, auth, tlsConfig)
	} else {
		err = e.SendWithStartTLS(addr, auth, tlsConfig)
	}
	if err != nil {
		return classifySMTPError(fmt.Errorf("failed to send reply to %s: %w", r.To, err))
	}
	return nil
}

// compose builds the outgoing message with threading headers
func (sc *SMTPClient) compose(r triage.Reply) *email.Email {
	e := email.NewEmail()

	from := mail.Address{Name: sc.config.Policy.FromName, Address: sc.config.EmailAddress}
	e.From = from.String()
	e.To = []string{r.To}
	e.Subject = r.Subject
	e.Text = []byte(r.Body)

	if r.InReplyTo != "" {
		e.Headers.Set("In-Reply-To", r.InReplyTo)
		e.Headers.Set("References", r.InReplyTo)
	}
	return e
}

// Verify dials the server and authenticates without sending anything
func (sc *SMTPClient) Verify(_ context.Context) error {
	addr := fmt.Sprintf("%s:%d", sc.config.SMTPServer, sc.config.SMTPPort)
	tlsConfig := &tls.Config{ServerName: sc.config.SMTPServer}
	dialer := &net.Dialer{Timeout: sc.config.Timeout}

	var conn net.Conn
	var err error
	if sc.config.SMTPPort == implicitTLSPort {
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, tlsConfig)
	} else {
		conn, err = dialer.Dial("tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to connect to %s: %v", triage.ErrConnection, addr, err)
	}

	c, err := smtp.NewClient(conn, sc.config.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: smtp handshake with %s: %v", triage.ErrConnection, addr, err)
	}
	defer c.Close()

	if sc.config.SMTPPort != implicitTLSPort {
		if err := c.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("%w: starttls with %s: %v", triage.ErrConnection, addr, err)
		}
	}
	auth := smtp.PlainAuth("", sc.config.EmailAddress, sc.config.EmailPassword, sc.config.SMTPServer)
	if err := c.Auth(auth); err != nil {
		return fmt.Errorf("%w: authentication failed for %s: %v", triage.ErrConnection, sc.config.EmailAddress, err)
	}
	return c.Quit()
}

// classifySMTPError tags dial, TLS and authentication failures as
// connection errors. Anything else is a per-message failure.
func classifySMTPError(err error) error {
	var opErr *net.OpError
	var certErr *tls.CertificateVerificationError
	var protoErr *textproto.Error

	switch {
	case errors.As(err, &opErr), errors.As(err, &certErr):
		return fmt.Errorf("%w: %v", triage.ErrConnection, err)
	case errors.As(err, &protoErr):
		switch protoErr.Code {
		case 421, 454, 530, 534, 535:
			return fmt.Errorf("%w: %v", triage.ErrConnection, err)
		}
	}
	return err
}
