// Package notify tells the operator about build triggers and failures
// outside the terminal.
package notify

import (
	"context"
	"errors"

	"github.com/hochfrequenz/ghactl/internal/runner"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	NotifyInfo NotificationType = iota
	NotifySuccess
	NotifyWarning
	NotifyError
)

// Notification represents a notification to be sent
type Notification struct {
	Title   string
	Message string
	Type    NotificationType
	Tag     string // Optional build tag
	RunID   string // Optional workflow run reference
}

// Notifier is the interface for sending notifications
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// MultiNotifier sends to multiple notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send sends the notification to all notifiers
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier does nothing (for testing or disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(context.Context, Notification) error { return nil }

// Options selects the enabled channels
type Options struct {
	Desktop      bool
	SlackWebhook string
	DryRun       bool
}

// New builds the notifier for opts. Dry-run and no enabled channel both
// yield a NoopNotifier.
func New(opts Options, r runner.Runner) Notifier {
	if opts.DryRun {
		return NoopNotifier{}
	}
	var notifiers []Notifier
	if opts.Desktop {
		notifiers = append(notifiers, NewDesktopNotifier(r))
	}
	if opts.SlackWebhook != "" {
		notifiers = append(notifiers, NewSlackNotifier(opts.SlackWebhook))
	}
	if len(notifiers) == 0 {
		return NoopNotifier{}
	}
	return NewMultiNotifier(notifiers...)
}
