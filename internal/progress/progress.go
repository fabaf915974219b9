package progress

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/codefionn/autoresolve/internal/logger"
)

// Update describes one human-readable status report emitted during a resolution.
type Update struct {
	// Message is the text shown below the progress bar.
	Message string
	// Percent is the completion estimate in [0,100].
	Percent int
	// Final marks the terminal report; it is rendered without a bar.
	Final bool
}

// Reporter publishes progress updates somewhere a human can see them.
type Reporter interface {
	Report(ctx context.Context, update Update) error
}

// Func adapts a plain function to Reporter.
type Func func(ctx context.Context, update Update) error

// Report calls f.
func (f Func) Report(ctx context.Context, update Update) error {
	return f(ctx, update)
}

// Normalize clamps the percentage and trims the message.
func Normalize(update Update) Update {
	update.Message = strings.TrimSpace(update.Message)
	switch {
	case update.Percent < 0:
		update.Percent = 0
	case update.Percent > 100:
		update.Percent = 100
	}
	if update.Final {
		update.Percent = 100
	}
	return update
}

// Dispatch normalizes and sends the update if the reporter is set.
func Dispatch(ctx context.Context, r Reporter, update Update) error {
	if r == nil {
		return nil
	}
	return r.Report(ctx, Normalize(update))
}

// Multi fans an update out to every reporter and joins their errors.
type Multi []Reporter

// Report delivers update to every reporter, even when one fails.
func (m Multi) Report(ctx context.Context, update Update) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Report(ctx, update); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogReporter writes updates to a logger.
type LogReporter struct {
	Log *logger.Logger
}

// Report logs the update at info level.
func (r LogReporter) Report(_ context.Context, update Update) error {
	l := r.Log
	if l == nil {
		l = logger.Global()
	}
	if update.Final {
		l.Info("progress: done: %s", update.Message)
		return nil
	}
	l.Info("progress: %d%%: %s", update.Percent, update.Message)
	return nil
}

const barWidth = 20

// CreateProgressBar renders a markdown progress bar followed by msg.
// At 100% only the message is returned.
func CreateProgressBar(p int, msg string) string {
	if p < 0 {
		p = 0
	}
	if p >= 100 {
		return msg
	}

	filled := p * barWidth / 100
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", barWidth-filled)
	if msg == "" {
		return fmt.Sprintf("`%s` %d%%", bar, p)
	}
	return fmt.Sprintf("`%s` %d%%\n\n%s", bar, p, msg)
}
