package notify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Command runs a local shell command for each alert, e.g. notify-send or a
// pager CLI. Alert values reach the command through environment variables
// (SUPPORTLINE_TITLE, SUPPORTLINE_BODY, SUPPORTLINE_SEVERITY), never by
// splicing them into the command line.
type Command struct {
	command string
}

// NewCommand creates a Command notifier for a non-empty command line.
func NewCommand(command string) (*Command, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("notify: command is required")
	}
	return &Command{command: command}, nil
}

// Name implements Notifier.
func (c *Command) Name() string { return "command" }

// Notify implements Notifier.
func (c *Command) Notify(ctx context.Context, a Alert) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Env = append(os.Environ(),
		"SUPPORTLINE_TITLE="+a.Title,
		"SUPPORTLINE_BODY="+a.Body,
		"SUPPORTLINE_SEVERITY="+a.Severity,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
