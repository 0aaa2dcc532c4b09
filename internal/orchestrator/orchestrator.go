// Package orchestrator runs the support chat state machine: it persists
// chats and messages, moves chat status on every accepted message, fans
// new messages out to real-time rooms and fires auto-replies.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zulandar/supportline/internal/autoreply"
	"github.com/zulandar/supportline/internal/identity"
	"github.com/zulandar/supportline/internal/models"
	"github.com/zulandar/supportline/internal/notify"
	"gorm.io/gorm"
)

// EventSendMessage is published to a chat's room for every persisted
// message, including auto-replies.
const EventSendMessage = "sendMessage"

// alertTimeout bounds one escalation alert delivery.
const alertTimeout = 15 * time.Second

// Broadcaster publishes an event to everyone in a chat's room. Delivery is
// fire-and-forget.
type Broadcaster interface {
	Publish(chatID uint, event string, payload any)
}

// Replier finds the active auto-reply for an inbound message text.
type Replier interface {
	Match(ctx context.Context, text string) (*models.AutoReply, error)
}

// Alerter is told when a chat starts waiting on the admin desk.
type Alerter interface {
	Escalate(ctx context.Context, e notify.Escalation) error
}

type nopBroadcaster struct{}

func (nopBroadcaster) Publish(uint, string, any) {}

// Orchestrator coordinates the chat and message repositories.
type Orchestrator struct {
	db          *gorm.DB
	directory   identity.Directory
	replies     Replier
	broadcaster Broadcaster
	alerter     Alerter
	table       EscalationTable

	alerts sync.WaitGroup
}

// Opts holds parameters for creating an Orchestrator. Only DB is required.
type Opts struct {
	DB          *gorm.DB
	Directory   identity.Directory // defaults to identity.NewStore(DB)
	Replies     Replier            // defaults to autoreply.NewMatcher(DB)
	Broadcaster Broadcaster        // defaults to a no-op
	Alerter     Alerter            // nil disables escalation alerts
	Roles       map[string]string  // role → tier; defaults to config.DefaultOperatorRoles
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("orchestrator: db is required")
	}
	table, err := NewEscalationTable(opts.Roles)
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		db:          opts.DB,
		directory:   opts.Directory,
		replies:     opts.Replies,
		broadcaster: opts.Broadcaster,
		alerter:     opts.Alerter,
		table:       table,
	}
	if o.directory == nil {
		o.directory = identity.NewStore(opts.DB)
	}
	if o.replies == nil {
		o.replies = autoreply.NewMatcher(opts.DB)
	}
	if o.broadcaster == nil {
		o.broadcaster = nopBroadcaster{}
	}
	return o, nil
}

// Wait blocks until in-flight escalation alerts have finished.
func (o *Orchestrator) Wait() {
	o.alerts.Wait()
}

// operatorStatus resolves the status an operator's message moves a chat to.
func (o *Orchestrator) operatorStatus(ctx context.Context, s models.AdminSender) (models.ChatStatus, error) {
	role, err := o.directory.OperatorRole(ctx, s.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.NewValidationError("senderId", fmt.Sprintf("operator %d does not exist", s.ID))
		}
		return "", err
	}
	st, _, err := o.table.Transition(s, role)
	return st, err
}

// nextStatus applies the transition rule for sender s. changed is false for
// senders that leave status alone.
func (o *Orchestrator) nextStatus(ctx context.Context, s models.Sender) (models.ChatStatus, bool, error) {
	if admin, ok := s.(models.AdminSender); ok {
		st, err := o.operatorStatus(ctx, admin)
		return st, err == nil, err
	}
	return o.table.Transition(s, "")
}

// escalate hands an alert to the Alerter in the background when a chat
// moves into pending_admin_response from another status.
func (o *Orchestrator) escalate(c *models.Chat, previous models.ChatStatus, m *models.Message) {
	if o.alerter == nil || c.Status != models.StatusPendingAdminResponse || previous == models.StatusPendingAdminResponse {
		return
	}
	e := notify.Escalation{
		ChatID:   c.ID,
		Kind:     c.Kind,
		Previous: previous,
		Content:  m.Content,
		At:       m.CreatedAt,
	}
	sender := m.Sender()

	o.alerts.Add(1)
	go func() {
		defer o.alerts.Done()
		ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
		defer cancel()

		if sender != nil {
			ident, err := o.directory.Resolve(ctx, sender)
			if err != nil {
				log.Printf("orchestrator: resolve alert sender for chat %d: %v", e.ChatID, err)
			}
			e.From = ident
		}
		if err := o.alerter.Escalate(ctx, e); err != nil {
			log.Printf("orchestrator: escalation alert for chat %d: %v", e.ChatID, err)
		}
	}()
}
