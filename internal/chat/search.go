package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// Summary is one row of the operator inbox: a chat, its counterparty
// identity and its latest message.
type Summary struct {
	ChatID         uint              `json:"chatId"`
	Kind           models.ChatKind   `json:"kind"`
	Status         models.ChatStatus `json:"status"`
	UserID         *uint             `json:"userId,omitempty"`
	AffiliateID    *uint             `json:"affiliateId,omitempty"`
	GuestID        *string           `json:"guestId,omitempty"`
	OperatorID     *uint             `json:"operatorId,omitempty"`
	Username       string            `json:"username"`
	Fullname       string            `json:"fullname"`
	Email          string            `json:"email"`
	Phone          string            `json:"phone"`
	LastMessage    *string           `json:"lastMessage"`
	LastSenderType *string           `json:"lastSenderType"`
	LastMessageAt  *time.Time        `json:"lastMessageAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

const summarySelect = `chats.id AS chat_id, chats.kind, chats.status,
	chats.user_id, chats.affiliate_id, chats.guest_id, chats.operator_id, chats.updated_at,
	COALESCE(u.username, a.username, '') AS username,
	COALESCE(u.fullname, a.fullname, '') AS fullname,
	COALESCE(u.email, a.email, '') AS email,
	COALESCE(u.phone, a.phone, '') AS phone,
	lm.content AS last_message, lm.sender_type AS last_sender_type, lm.created_at AS last_message_at`

const summaryKeyword = `(u.username LIKE @kw ESCAPE '!' OR u.fullname LIKE @kw ESCAPE '!' OR u.email LIKE @kw ESCAPE '!' OR u.phone LIKE @kw ESCAPE '!'
	OR a.username LIKE @kw ESCAPE '!' OR a.fullname LIKE @kw ESCAPE '!' OR a.email LIKE @kw ESCAPE '!' OR a.phone LIKE @kw ESCAPE '!'
	OR chats.guest_id LIKE @kw ESCAPE '!'
	OR EXISTS (SELECT 1 FROM messages mk WHERE mk.chat_id = chats.id AND mk.content LIKE @kw ESCAPE '!'))`

// likeEscaper makes keyword wildcards literal under ESCAPE '!'. A backslash
// escape would need different quoting in MySQL and sqlite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// Search lists chat summaries for one actor class (empty means all),
// latest message first. Chats without messages sort last. A non-empty
// keyword matches counterparty identity fields, the guest id, or any
// message content in the thread.
func Search(ctx context.Context, db *gorm.DB, class models.ChatKind, keyword string) ([]Summary, error) {
	if class != "" && !class.Valid() {
		return nil, models.NewValidationError("class", fmt.Sprintf("unknown chat kind %q", class))
	}

	q := db.WithContext(ctx).Table("chats").
		Select(summarySelect).
		Joins("LEFT JOIN messages lm ON lm.id = (SELECT MAX(m2.id) FROM messages m2 WHERE m2.chat_id = chats.id)").
		Joins("LEFT JOIN users u ON chats.kind = ? AND u.id = chats.user_id", models.KindUser).
		Joins("LEFT JOIN admins a ON chats.kind = ? AND a.id = chats.affiliate_id", models.KindAdmin)

	if class != "" {
		q = q.Where("chats.kind = ?", class)
	}
	if keyword != "" {
		q = q.Where(summaryKeyword, map[string]interface{}{"kw": "%" + likeEscaper.Replace(keyword) + "%"})
	}

	var rows []Summary
	err := q.Order("CASE WHEN lm.created_at IS NULL THEN 1 ELSE 0 END, lm.created_at DESC, chats.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("chat: search: %w", err)
	}
	return rows, nil
}
