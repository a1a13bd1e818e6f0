package notify

import (
	"context"
	"log/slog"
)

// LogNotifier delivers notifications to a structured logger. It is the
// default for unattended runs where the operator reads the job's logs.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier writing to logger, or to the default
// logger when logger is nil.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Send logs the notification at warn level so it survives an info filter.
func (l *LogNotifier) Send(ctx context.Context, notification Notification) error {
	l.logger.WarnContext(ctx, "notification",
		"subject", notification.Subject,
		"body", notification.Body,
	)
	return nil
}
