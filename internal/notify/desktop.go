package notify

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/hochfrequenz/ghactl/internal/runner"
)

const desktopTimeout = 10 * time.Second

// DesktopNotifier sends desktop notifications through notify-send or osascript
type DesktopNotifier struct {
	runner runner.Runner
	goos   string
}

// NewDesktopNotifier creates a new desktop notifier
func NewDesktopNotifier(r runner.Runner) *DesktopNotifier {
	return &DesktopNotifier{runner: r, goos: runtime.GOOS}
}

// Send sends a desktop notification
func (d *DesktopNotifier) Send(ctx context.Context, n Notification) error {
	var cmd runner.Command
	switch d.goos {
	case "darwin":
		script := "display notification " + strconv.Quote(n.Message) + " with title " + strconv.Quote(n.Title)
		cmd = runner.Command{Name: "osascript", Args: []string{"-e", script}}
	case "linux":
		cmd = runner.Command{Name: "notify-send", Args: []string{"-i", IconForType(n.Type), n.Title, n.Message}}
	default:
		return nil // Unsupported
	}
	cmd.Timeout = desktopTimeout

	if res := d.runner.Run(ctx, cmd); !res.OK() {
		return fmt.Errorf("%s: %s", cmd.Name, res.Diagnostic())
	}
	return nil
}

// IconForType returns an icon name for the notification type
func IconForType(t NotificationType) string {
	switch t {
	case NotifySuccess:
		return "dialog-positive"
	case NotifyWarning:
		return "dialog-warning"
	case NotifyError:
		return "dialog-error"
	default:
		return "dialog-information"
	}
}
