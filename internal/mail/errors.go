package mail

import (
	"fmt"
	"sort"
	"strings"
)

// RecipientsRefusedError reports recipients the server would not accept.
// When Accepted is positive the message was still delivered to the others.
type RecipientsRefusedError struct {
	Rejected map[string]error
	// Accepted counts the RCPT commands the server accepted.
	Accepted int
}

// Delivered reports whether any recipient got the message.
func (e *RecipientsRefusedError) Delivered() bool {
	return e.Accepted > 0
}

func (e *RecipientsRefusedError) Error() string {
	parts := make([]string, 0, len(e.Rejected))
	for _, rcpt := range e.Recipients() {
		parts = append(parts, fmt.Sprintf("%s (%v)", rcpt, e.Rejected[rcpt]))
	}
	return "SMTP recipients refused: " + strings.Join(parts, ", ")
}

// Recipients returns the refused addresses, sorted.
func (e *RecipientsRefusedError) Recipients() []string {
	rcpts := make([]string, 0, len(e.Rejected))
	for rcpt := range e.Rejected {
		rcpts = append(rcpts, rcpt)
	}
	sort.Strings(rcpts)
	return rcpts
}

// SMTPError is a connection or protocol failure. Op names the stage that
// failed: "dial", "hello", "MAIL FROM", "RCPT TO", "DATA" or "message".
type SMTPError struct {
	Op    string
	Cause error
}

func (e *SMTPError) Error() string {
	return fmt.Sprintf("SMTP error during %s: %v", e.Op, e.Cause)
}

func (e *SMTPError) Unwrap() error {
	return e.Cause
}
