// Package mail is the outbound email boundary.
//
// The verification service only knows the Dispatcher interface; which
// provider actually delivers the message is a deployment decision made in
// config. Two implementations ship: Resend (production) and a console
// logger (development — codes print to the server log so you can verify an
// account without a real inbox).
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Dispatcher sends one email. Implementations must be safe for concurrent
// use; delivery latency is the caller's problem to tolerate, not ours to
// hide.
type Dispatcher interface {
	Send(ctx context.Context, to, subject, html string) error
}

// ResendDispatcher delivers through the Resend API.
type ResendDispatcher struct {
	client *resend.Client
	from   string
}

// NewResendDispatcher creates a Resend-backed dispatcher. from is the
// sender identity, e.g. "ProjectXS <noreply@projectxs.com>".
func NewResendDispatcher(apiKey, from string) *ResendDispatcher {
	return &ResendDispatcher{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

func (d *ResendDispatcher) Send(ctx context.Context, to, subject, html string) error {
	_, err := d.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    d.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("mail: sending via resend: %w", err)
	}
	return nil
}

// ConsoleDispatcher logs emails instead of sending them.
type ConsoleDispatcher struct {
	logger *slog.Logger
}

func NewConsoleDispatcher(logger *slog.Logger) *ConsoleDispatcher {
	return &ConsoleDispatcher{logger: logger}
}

func (d *ConsoleDispatcher) Send(_ context.Context, to, subject, html string) error {
	d.logger.Info("email (console dispatcher, not delivered)",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("bodyBytes", len(html)),
	)
	return nil
}
