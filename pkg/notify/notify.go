// Package notify delivers short user-facing notifications about finished runs.
package notify

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattsolo1/grove-assets/pkg/exec"
)

// Notification is a single message about the outcome of a run.
type Notification struct {
	Title   string
	Message string
	Success bool
	// Sound names the system sound to play where the backend supports one.
	Sound string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(n Notification) error
}

// ConsoleNotifier prints notifications to a terminal stream.
type ConsoleNotifier struct {
	Out  io.Writer
	Bell bool
}

// NewConsoleNotifier writes to f and rings the terminal bell when f is a TTY.
func NewConsoleNotifier(f *os.File) *ConsoleNotifier {
	return &ConsoleNotifier{
		Out:  f,
		Bell: isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()),
	}
}

// Notify implements Notifier.
func (c *ConsoleNotifier) Notify(n Notification) error {
	style := color.New(color.FgGreen, color.Bold)
	mark := "✓"
	if !n.Success {
		style = color.New(color.FgRed, color.Bold)
		mark = "✗"
	}
	line := style.Sprintf("%s %s: %s", mark, n.Title, n.Message)
	if c.Bell && n.Sound != "" {
		line += "\a"
	}
	_, err := fmt.Fprintln(c.Out, line)
	return err
}

// DesktopNotifier raises an OS notification through notify-send or osascript.
type DesktopNotifier struct {
	exec exec.CommandExecutor
	goos string
}

// NewDesktopNotifier creates a desktop notifier for the running OS.
func NewDesktopNotifier(executor exec.CommandExecutor) *DesktopNotifier {
	return &DesktopNotifier{exec: executor, goos: runtime.GOOS}
}

// ErrUnsupported is returned when no desktop notification backend exists.
var ErrUnsupported = errors.New("no desktop notification backend available")

// Notify implements Notifier.
func (d *DesktopNotifier) Notify(n Notification) error {
	switch d.goos {
	case "darwin":
		if _, err := d.exec.LookPath("osascript"); err != nil {
			return ErrUnsupported
		}
		script := fmt.Sprintf("display notification %q with title %q", n.Message, n.Title)
		if n.Sound != "" {
			script += fmt.Sprintf(" sound name %q", n.Sound)
		}
		return d.exec.Execute("osascript", "-e", script)
	default:
		if _, err := d.exec.LookPath("notify-send"); err != nil {
			return ErrUnsupported
		}
		urgency := "normal"
		if !n.Success {
			urgency = "critical"
		}
		return d.exec.Execute("notify-send", "--urgency="+urgency, n.Title, n.Message)
	}
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; errors are joined.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(n Notification) error {
	var errs []error
	for _, notifier := range m {
		if err := notifier.Notify(n); err != nil && !errors.Is(err, ErrUnsupported) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
