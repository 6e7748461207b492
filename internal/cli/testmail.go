package cli

import (
	"context"

	"github.com/AndreyAkinshin/nightowl/internal/errors"
	"github.com/AndreyAkinshin/nightowl/internal/mail"
)

// testMail sends a sample notification to check the SMTP settings.
func (a *app) testMail(ctx context.Context, sender mail.Sender) error {
	if err := sender.Notify(ctx, []string{a.opts.TestMail}, "hello world", "the error text"); err != nil {
		return errors.Wrap(err, "test mail failed")
	}
	a.out.Info("test mail sent to %s", a.opts.TestMail)
	return nil
}
