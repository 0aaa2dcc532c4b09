package models

import (
	"fmt"
	"time"
)

// ChatStatus is the lifecycle state of a support conversation.
type ChatStatus string

const (
	StatusOpen                 ChatStatus = "open"
	StatusClosed               ChatStatus = "closed"
	StatusPendingAdminResponse ChatStatus = "pending_admin_response"
	StatusPendingUserResponse  ChatStatus = "pending_user_response"
)

// Valid reports whether s is one of the four chat statuses.
func (s ChatStatus) Valid() bool {
	switch s {
	case StatusOpen, StatusClosed, StatusPendingAdminResponse, StatusPendingUserResponse:
		return true
	}
	return false
}

// ParseChatStatus validates a raw status string.
func ParseChatStatus(raw string) (ChatStatus, error) {
	s := ChatStatus(raw)
	if !s.Valid() {
		return "", NewValidationError("status", fmt.Sprintf("unknown status %q", raw))
	}
	return s, nil
}

// ChatKind names which counterparty type owns a thread.
type ChatKind string

const (
	KindUser  ChatKind = "user"
	KindAdmin ChatKind = "admin"
	KindGuest ChatKind = "guest"
)

// Valid reports whether k is a known chat kind.
func (k ChatKind) Valid() bool {
	switch k {
	case KindUser, KindAdmin, KindGuest:
		return true
	}
	return false
}

// ParseChatKind validates a raw kind string.
func ParseChatKind(raw string) (ChatKind, error) {
	k := ChatKind(raw)
	if !k.Valid() {
		return "", NewValidationError("kind", fmt.Sprintf("unknown chat kind %q", raw))
	}
	return k, nil
}

// Chat is one support conversation thread. Exactly one of UserID,
// AffiliateID and GuestID is set, matching Kind; it never changes after
// creation. OperatorID is the assigned operator and may be reassigned.
type Chat struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Kind        ChatKind   `gorm:"size:16;not null;index" json:"kind"`
	UserID      *uint      `gorm:"index" json:"userId,omitempty"`
	AffiliateID *uint      `gorm:"index" json:"affiliateId,omitempty"`
	GuestID     *string    `gorm:"size:64;index" json:"guestId,omitempty"`
	OperatorID  *uint      `gorm:"index" json:"operatorId,omitempty"`
	Status      ChatStatus `gorm:"size:32;not null;default:open;index" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Messages []Message `gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE" json:"messages,omitempty"`
}

// NewChat builds an unsaved chat owned by cp.
func NewChat(cp Counterparty, status ChatStatus) *Chat {
	c := &Chat{Kind: cp.Kind(), Status: status}
	switch ref := cp.(type) {
	case UserRef:
		id := ref.ID
		c.UserID = &id
	case AffiliateRef:
		id := ref.ID
		c.AffiliateID = &id
	case GuestRef:
		id := ref.ID
		c.GuestID = &id
	}
	return c
}

// Counterparty reconstructs the owning party from the row columns.
// It returns nil for a row that does not name exactly one counterparty.
func (c *Chat) Counterparty() Counterparty {
	switch c.Kind {
	case KindUser:
		if c.UserID != nil {
			return UserRef{ID: *c.UserID}
		}
	case KindAdmin:
		if c.AffiliateID != nil {
			return AffiliateRef{ID: *c.AffiliateID}
		}
	case KindGuest:
		if c.GuestID != nil {
			return GuestRef{ID: *c.GuestID}
		}
	}
	return nil
}

// Counterparty is the non-operator owner of a chat: a registered player,
// an affiliate-tier operator talking to the admin desk, or an anonymous guest.
type Counterparty interface {
	Kind() ChatKind
	isCounterparty()
}

// UserRef points at a registered player.
type UserRef struct{ ID uint }

// AffiliateRef points at an affiliate-tier operator that owns an admin thread.
type AffiliateRef struct{ ID uint }

// GuestRef carries an opaque anonymous visitor id.
type GuestRef struct{ ID string }

func (UserRef) Kind() ChatKind      { return KindUser }
func (AffiliateRef) Kind() ChatKind { return KindAdmin }
func (GuestRef) Kind() ChatKind     { return KindGuest }

func (UserRef) isCounterparty()      {}
func (AffiliateRef) isCounterparty() {}
func (GuestRef) isCounterparty()     {}

// NewCounterparty validates raw transport fields into a Counterparty.
// Exactly one of userID, affiliateID and guestID must be provided.
func NewCounterparty(userID, affiliateID *uint, guestID string) (Counterparty, error) {
	set := 0
	if userID != nil {
		set++
	}
	if affiliateID != nil {
		set++
	}
	if guestID != "" {
		set++
	}
	if set != 1 {
		return nil, NewValidationError("counterparty", "exactly one of userId, affiliateId, guestId is required")
	}
	switch {
	case userID != nil:
		if *userID == 0 {
			return nil, NewValidationError("userId", "must be positive")
		}
		return UserRef{ID: *userID}, nil
	case affiliateID != nil:
		if *affiliateID == 0 {
			return nil, NewValidationError("affiliateId", "must be positive")
		}
		return AffiliateRef{ID: *affiliateID}, nil
	default:
		return GuestRef{ID: guestID}, nil
	}
}
