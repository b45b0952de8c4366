// Package notify delivers human-readable crawl progress messages.
package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Notifier sends one text message. Senders are awaited so message ordering
// matches log ordering, but delivery failures are not fatal to a crawl run.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// LogNotifier writes messages to the logger only. It is the fallback when no
// outbound channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLog creates a LogNotifier.
func NewLog(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message.
func (n *LogNotifier) Send(_ context.Context, text string) error {
	n.logger.Info("notification", zap.String("text", text))
	return nil
}

// Multi fans a message out to several channels in order.
type Multi struct {
	notifiers []Notifier
}

// NewMulti creates a fan-out notifier.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

// Send delivers to every channel and joins the failures.
func (m *Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
