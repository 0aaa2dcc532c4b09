// Package notify alerts operators on chat platforms (Slack, Discord) or
// through a local command when a support chat escalates to the admin desk,
// and posts a periodic backlog digest.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/supportline/internal/identity"
	"github.com/zulandar/supportline/internal/models"
)

// Notifier delivers one alert to a single platform.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a Alert) error
}

// Alert is a platform-neutral notification.
type Alert struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error", "success"
	Color    string // sidebar color hint
	Fields   []Field
}

// Field is a key-value pair rendered alongside the alert body.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Escalation describes a chat that has just started waiting on the admin
// desk.
type Escalation struct {
	ChatID   uint
	Kind     models.ChatKind
	Previous models.ChatStatus // empty for a newly created chat
	From     identity.Identity
	Content  string
	At       time.Time
}

// Dispatcher fans alerts out to every configured notifier.
type Dispatcher struct {
	notifiers []Notifier
}

// NewDispatcher creates a Dispatcher. Nil notifiers are skipped.
func NewDispatcher(notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

// Len returns the number of notifiers.
func (d *Dispatcher) Len() int {
	return len(d.notifiers)
}

// Send delivers a to every notifier. One platform failing does not stop
// delivery to the others; all failures are returned joined.
func (d *Dispatcher) Send(ctx context.Context, a Alert) error {
	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, a); err != nil {
			errs = append(errs, fmt.Errorf("notify: %s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Escalate formats e and sends it.
func (d *Dispatcher) Escalate(ctx context.Context, e Escalation) error {
	return d.Send(ctx, FormatEscalation(e))
}
