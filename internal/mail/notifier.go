// Package mail sends failure notifications over SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	netmail "net/mail"
	"net/smtp"
	"net/textproto"
	"time"

	"github.com/rs/zerolog"
)

// Sender delivers a notification to recipients.
type Sender interface {
	Notify(ctx context.Context, recipients []string, subject, body string) error
}

// Options configures a Notifier.
type Options struct {
	// Addr is the SMTP server as host:port.
	Addr string
	// From is the From header, e.g. "Night Owl <owl@example.com>".
	From string
	// IncludeOwl attaches the owl picture to every message.
	IncludeOwl bool
}

// Notifier sends plain SMTP mail without authentication or TLS.
type Notifier struct {
	opts Options
	log  zerolog.Logger
	now  func() time.Time
}

// NewNotifier creates a notifier.
func NewNotifier(opts Options, log zerolog.Logger) *Notifier {
	return &Notifier{
		opts: opts,
		log:  log.With().Str("component", "mail").Logger(),
		now:  time.Now,
	}
}

// FailureSubject is the subject of a failure notification for a buildout.
func FailureSubject(buildout string) string {
	return fmt.Sprintf("owl failure in %q", buildout)
}

// Notify sends one message to all recipients with a single To header.
//
// Refused recipients produce a *RecipientsRefusedError; the message still
// goes to the accepted ones. Any other failure is an *SMTPError. The
// connection is always closed.
func (n *Notifier) Notify(ctx context.Context, recipients []string, subject, body string) error {
	envelopeFrom, err := addressOf(n.opts.From)
	if err != nil {
		return &SMTPError{Op: "message", Cause: fmt.Errorf("invalid sender: %w", err)}
	}

	msg, err := Message{
		From:       n.opts.From,
		To:         recipients,
		Subject:    subject,
		Body:       body,
		IncludeOwl: n.opts.IncludeOwl,
		Date:       n.now(),
	}.Bytes()
	if err != nil {
		return &SMTPError{Op: "message", Cause: err}
	}

	n.log.Debug().Str("addr", n.opts.Addr).Strs("to", recipients).Str("subject", subject).Msg("sending mail")

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", n.opts.Addr)
	if err != nil {
		return &SMTPError{Op: "dial", Cause: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(n.opts.Addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		conn.Close()
		return &SMTPError{Op: "hello", Cause: err}
	}
	defer func() {
		if quitErr := c.Quit(); quitErr != nil {
			c.Close()
		}
	}()

	if err := c.Mail(envelopeFrom); err != nil {
		return &SMTPError{Op: "MAIL FROM", Cause: err}
	}

	rejected := make(map[string]error)
	accepted := 0
	for _, rcpt := range recipients {
		addr, err := addressOf(rcpt)
		if err != nil {
			rejected[rcpt] = err
			continue
		}
		if err := c.Rcpt(addr); err != nil {
			var protoErr *textproto.Error
			if !errors.As(err, &protoErr) {
				return &SMTPError{Op: "RCPT TO", Cause: err}
			}
			rejected[rcpt] = err
			continue
		}
		accepted++
	}

	if accepted > 0 {
		if err := sendData(c, msg); err != nil {
			return err
		}
	} else if err := c.Reset(); err != nil {
		return &SMTPError{Op: "RSET", Cause: err}
	}

	if len(rejected) > 0 {
		return &RecipientsRefusedError{Rejected: rejected, Accepted: accepted}
	}

	n.log.Info().Strs("to", recipients).Msg("mail sent")
	return nil
}

func sendData(c *smtp.Client, msg []byte) error {
	w, err := c.Data()
	if err != nil {
		return &SMTPError{Op: "DATA", Cause: err}
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return &SMTPError{Op: "DATA", Cause: err}
	}
	if err := w.Close(); err != nil {
		return &SMTPError{Op: "DATA", Cause: err}
	}
	return nil
}

// addressOf extracts the bare address from "Name <addr>" or "addr".
func addressOf(s string) (string, error) {
	a, err := netmail.ParseAddress(s)
	if err != nil {
		return "", err
	}
	return a.Address, nil
}
