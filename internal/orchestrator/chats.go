package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/supportline/internal/chat"
	"github.com/zulandar/supportline/internal/identity"
	"github.com/zulandar/supportline/internal/message"
	"github.com/zulandar/supportline/internal/models"
)

// ChatDetail is a chat with its counterparty, operator and messages
// resolved for display.
type ChatDetail struct {
	*models.Chat
	Counterparty *identity.Identity `json:"counterparty,omitempty"`
	Operator     *identity.Identity `json:"operator,omitempty"`
	Messages     []message.View     `json:"messages"`
}

// GetChat returns a chat with its messages oldest first.
func (o *Orchestrator) GetChat(ctx context.Context, id uint) (*ChatDetail, error) {
	c, err := chat.Find(ctx, o.db, id)
	if err != nil {
		return nil, err
	}
	msgs, err := message.ListByChat(ctx, o.db, id)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []message.View{}
	}

	d := &ChatDetail{Chat: c, Messages: msgs}
	if cp := c.Counterparty(); cp != nil {
		ident, err := o.directory.Resolve(ctx, identity.ForCounterparty(cp))
		if err != nil {
			return nil, err
		}
		d.Counterparty = &ident
	}
	if c.OperatorID != nil {
		ident, err := o.directory.Resolve(ctx, models.AdminSender{ID: *c.OperatorID})
		if err != nil {
			return nil, err
		}
		d.Operator = &ident
	}
	return d, nil
}

// ListChats returns inbox summaries for an actor class, latest message
// first. An empty class lists every chat.
func (o *Orchestrator) ListChats(ctx context.Context, class models.ChatKind, keyword string) ([]chat.Summary, error) {
	return chat.Search(ctx, o.db, class, keyword)
}

// UpdateChatStatus sets a chat's status directly, bypassing the message
// rule.
func (o *Orchestrator) UpdateChatStatus(ctx context.Context, id uint, status models.ChatStatus) (*models.Chat, error) {
	return chat.UpdateStatus(ctx, o.db, id, status)
}

// AssignOperator points a chat at an existing operator without touching its
// status.
func (o *Orchestrator) AssignOperator(ctx context.Context, id, operatorID uint) (*models.Chat, error) {
	if err := o.requireChat(ctx, id); err != nil {
		return nil, err
	}
	if err := o.requireOperator(ctx, operatorID); err != nil {
		return nil, err
	}
	return chat.AssignOperator(ctx, o.db, id, operatorID)
}

// MarkRead flags a chat's unread messages from senderType as read.
func (o *Orchestrator) MarkRead(ctx context.Context, chatID uint, senderType models.SenderType) (int64, error) {
	if !senderType.Valid() {
		return 0, models.NewValidationError("senderType", fmt.Sprintf("unknown sender type %q", senderType))
	}
	if err := o.requireChat(ctx, chatID); err != nil {
		return 0, err
	}
	return message.MarkRead(ctx, o.db, chatID, senderType)
}

// DeleteChat removes a chat and its messages.
func (o *Orchestrator) DeleteChat(ctx context.Context, id uint) error {
	return chat.Delete(ctx, o.db, id)
}

func (o *Orchestrator) requireChat(ctx context.Context, id uint) error {
	ok, err := chat.Exists(ctx, o.db, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}
	return nil
}

func (o *Orchestrator) requireOperator(ctx context.Context, id uint) error {
	if id == 0 {
		return models.NewValidationError("operatorId", "required")
	}
	_, err := o.directory.OperatorRole(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewValidationError("operatorId", fmt.Sprintf("operator %d does not exist", id))
	}
	return err
}
