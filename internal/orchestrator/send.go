package orchestrator

import (
	"context"
	"strings"

	"github.com/zulandar/supportline/internal/chat"
	"github.com/zulandar/supportline/internal/message"
	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// CreateChatInput describes a new chat and its optional first message.
type CreateChatInput struct {
	Counterparty  models.Counterparty
	OperatorID    *uint
	Sender        models.Sender // author of the initial message; nil opens an empty chat
	Content       string
	AttachmentURL string
	// Reuse returns the counterparty's latest non-closed chat instead of
	// creating another one. The initial message, if any, is sent into it.
	Reuse bool
}

// SendMessageInput is one inbound message.
type SendMessageInput struct {
	ChatID        uint
	Sender        models.Sender
	Content       string
	AttachmentURL string
}

func validateBody(content, attachmentURL string) error {
	if strings.TrimSpace(content) == "" && attachmentURL == "" {
		return models.NewValidationError("content", "content or attachment is required")
	}
	return nil
}

// CreateChat opens a chat. With no initial message the chat starts open;
// otherwise its status follows the same rule as a message sent into an
// existing chat.
func (o *Orchestrator) CreateChat(ctx context.Context, in CreateChatInput) (*models.Chat, error) {
	if in.Counterparty == nil {
		return nil, models.NewValidationError("counterparty", "exactly one of userId, affiliateId, guestId is required")
	}
	if in.OperatorID != nil {
		if err := o.requireOperator(ctx, *in.OperatorID); err != nil {
			return nil, err
		}
	}
	hasMessage := in.Sender != nil
	if hasMessage {
		if _, ok := in.Sender.(models.SystemSender); ok {
			return nil, models.NewValidationError("senderType", "system cannot open a chat")
		}
		if err := validateBody(in.Content, in.AttachmentURL); err != nil {
			return nil, err
		}
	} else if in.Content != "" || in.AttachmentURL != "" {
		return nil, models.NewValidationError("senderType", "required with an initial message")
	}

	if in.Reuse {
		existing, err := chat.FindActive(ctx, o.db, in.Counterparty)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return o.reuse(ctx, existing, in)
		}
	}

	status := models.StatusOpen
	if hasMessage {
		var err error
		if status, _, err = o.nextStatus(ctx, in.Sender); err != nil {
			return nil, err
		}
	}

	c := models.NewChat(in.Counterparty, status)
	c.OperatorID = in.OperatorID
	if admin, ok := in.Sender.(models.AdminSender); ok && c.OperatorID == nil && c.Counterparty() != (models.AffiliateRef{ID: admin.ID}) {
		id := admin.ID
		c.OperatorID = &id
	}

	var first *models.Message
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := chat.Create(ctx, tx, c); err != nil {
			return err
		}
		if !hasMessage {
			return nil
		}
		first = models.NewMessage(c.ID, in.Sender, in.Content, in.AttachmentURL)
		return message.Create(ctx, tx, first)
	})
	if err != nil {
		return nil, err
	}

	if first != nil {
		o.broadcaster.Publish(c.ID, EventSendMessage, first)
		o.escalate(c, "", first)
		c.Messages = []models.Message{*first}
	}
	return c, nil
}

func (o *Orchestrator) reuse(ctx context.Context, existing *models.Chat, in CreateChatInput) (*models.Chat, error) {
	if in.OperatorID != nil {
		if _, err := chat.AssignOperator(ctx, o.db, existing.ID, *in.OperatorID); err != nil {
			return nil, err
		}
	}
	if in.Sender != nil {
		_, err := o.SendMessage(ctx, SendMessageInput{
			ChatID:        existing.ID,
			Sender:        in.Sender,
			Content:       in.Content,
			AttachmentURL: in.AttachmentURL,
		})
		if err != nil {
			return nil, err
		}
	}
	return chat.Get(ctx, o.db, existing.ID)
}

// SendMessage accepts a message into an existing chat. The message is
// persisted and published first, then the chat status moves, then a
// matching auto-reply is persisted and published for player and guest
// messages. The inbound message is returned.
func (o *Orchestrator) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.Sender == nil {
		return nil, models.NewValidationError("senderType", "required")
	}
	if err := validateBody(in.Content, in.AttachmentURL); err != nil {
		return nil, err
	}

	c, err := chat.Find(ctx, o.db, in.ChatID)
	if err != nil {
		return nil, err
	}
	status, changed, err := o.nextStatus(ctx, in.Sender)
	if err != nil {
		return nil, err
	}

	msg := models.NewMessage(c.ID, in.Sender, in.Content, in.AttachmentURL)
	if err := message.Create(ctx, o.db, msg); err != nil {
		return nil, err
	}
	o.broadcaster.Publish(c.ID, EventSendMessage, msg)

	if changed {
		previous := c.Status
		updated, err := chat.UpdateStatus(ctx, o.db, c.ID, status)
		if err != nil {
			return nil, err
		}
		o.escalate(updated, previous, msg)
	}

	switch in.Sender.(type) {
	case models.UserSender, models.GuestSender:
		if err := o.autoReply(ctx, c.ID, msg.Content); err != nil {
			return nil, err
		}
	}
	return msg, nil
}

// autoReply posts the system reply for text, if an active one matches.
func (o *Orchestrator) autoReply(ctx context.Context, chatID uint, text string) error {
	ar, err := o.replies.Match(ctx, text)
	if err != nil || ar == nil {
		return err
	}
	reply := models.NewMessage(chatID, models.SystemSender{}, ar.ReplyMessage, "")
	if err := message.Create(ctx, o.db, reply); err != nil {
		return err
	}
	o.broadcaster.Publish(chatID, EventSendMessage, reply)
	return nil
}
