package models

import (
	"fmt"
	"time"
)

// SenderType names who authored a message.
type SenderType string

const (
	SenderUser   SenderType = "user"
	SenderAdmin  SenderType = "admin"
	SenderGuest  SenderType = "guest"
	SenderSystem SenderType = "system"
)

// Valid reports whether t is a known sender type.
func (t SenderType) Valid() bool {
	switch t {
	case SenderUser, SenderAdmin, SenderGuest, SenderSystem:
		return true
	}
	return false
}

// ParseSenderType validates a raw sender type string.
func ParseSenderType(raw string) (SenderType, error) {
	t := SenderType(raw)
	if !t.Valid() {
		return "", NewValidationError("senderType", fmt.Sprintf("unknown sender type %q", raw))
	}
	return t, nil
}

// Message is one unit of conversation content inside a chat.
type Message struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID        uint       `gorm:"not null;index" json:"chatId"`
	SenderType    SenderType `gorm:"size:16;not null;index" json:"senderType"`
	SenderID      *uint      `gorm:"index" json:"senderId,omitempty"`
	GuestSenderID *string    `gorm:"size:64" json:"guestSenderId,omitempty"`
	Content       string     `gorm:"type:text;not null" json:"content"`
	AttachmentURL *string    `gorm:"size:512" json:"attachmentUrl,omitempty"`
	IsRead        bool       `gorm:"default:false;index" json:"isRead"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewMessage builds an unsaved message authored by s.
func NewMessage(chatID uint, s Sender, content string, attachmentURL string) *Message {
	m := &Message{
		ChatID:     chatID,
		SenderType: s.Type(),
		Content:    content,
	}
	switch v := s.(type) {
	case UserSender:
		id := v.ID
		m.SenderID = &id
	case AdminSender:
		id := v.ID
		m.SenderID = &id
	case GuestSender:
		id := v.ID
		m.GuestSenderID = &id
	}
	if attachmentURL != "" {
		m.AttachmentURL = &attachmentURL
	}
	return m
}

// Sender reconstructs the author variant from the row columns.
func (m *Message) Sender() Sender {
	switch m.SenderType {
	case SenderUser:
		if m.SenderID != nil {
			return UserSender{ID: *m.SenderID}
		}
	case SenderAdmin:
		if m.SenderID != nil {
			return AdminSender{ID: *m.SenderID}
		}
	case SenderGuest:
		if m.GuestSenderID != nil {
			return GuestSender{ID: *m.GuestSenderID}
		}
	case SenderSystem:
		return SystemSender{}
	}
	return nil
}

// Sender is the author of a message. Each variant carries only the
// identity field valid for it.
type Sender interface {
	Type() SenderType
	isSender()
}

// UserSender is a registered player.
type UserSender struct{ ID uint }

// AdminSender is an operator of either tier.
type AdminSender struct{ ID uint }

// GuestSender is an anonymous visitor.
type GuestSender struct{ ID string }

// SystemSender is the automated auto-reply author.
type SystemSender struct{}

func (UserSender) Type() SenderType   { return SenderUser }
func (AdminSender) Type() SenderType  { return SenderAdmin }
func (GuestSender) Type() SenderType  { return SenderGuest }
func (SystemSender) Type() SenderType { return SenderSystem }

func (UserSender) isSender()   {}
func (AdminSender) isSender()  {}
func (GuestSender) isSender()  {}
func (SystemSender) isSender() {}

// NewSender validates raw transport fields into a Sender variant.
func NewSender(t SenderType, senderID *uint, guestSenderID string) (Sender, error) {
	switch t {
	case SenderUser, SenderAdmin:
		if senderID == nil || *senderID == 0 {
			return nil, NewValidationError("senderId", fmt.Sprintf("required for sender type %q", t))
		}
		if guestSenderID != "" {
			return nil, NewValidationError("guestSenderId", fmt.Sprintf("not allowed for sender type %q", t))
		}
		if t == SenderUser {
			return UserSender{ID: *senderID}, nil
		}
		return AdminSender{ID: *senderID}, nil
	case SenderGuest:
		if guestSenderID == "" {
			return nil, NewValidationError("guestSenderId", "required for sender type \"guest\"")
		}
		if senderID != nil {
			return nil, NewValidationError("senderId", "not allowed for sender type \"guest\"")
		}
		return GuestSender{ID: guestSenderID}, nil
	case SenderSystem:
		return SystemSender{}, nil
	}
	return nil, NewValidationError("senderType", fmt.Sprintf("unknown sender type %q", t))
}
