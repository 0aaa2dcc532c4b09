// Package message persists chat messages and reads them back with the
// sender's display identity attached.
package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// View is a message joined with its sender's identity. Guest and system
// senders carry empty identity fields.
type View struct {
	models.Message
	SenderUsername string `json:"senderUsername"`
	SenderFullname string `json:"senderFullname"`
	SenderEmail    string `json:"senderEmail"`
}

// Create inserts a message. The sender columns must describe a valid
// sender variant and the message must carry content or an attachment.
func Create(ctx context.Context, db *gorm.DB, m *models.Message) error {
	if m.ChatID == 0 {
		return models.NewValidationError("chatId", "required")
	}
	if m.Sender() == nil {
		return models.NewValidationError("senderType", fmt.Sprintf("sender columns do not match sender type %q", m.SenderType))
	}
	if strings.TrimSpace(m.Content) == "" && m.AttachmentURL == nil {
		return models.NewValidationError("content", "content or attachment is required")
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("message: create: %w", err)
	}
	return nil
}

func views(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Table("messages").
		Select(`messages.*,
			COALESCE(u.username, a.username, '') AS sender_username,
			COALESCE(u.fullname, a.fullname, '') AS sender_fullname,
			COALESCE(u.email, a.email, '') AS sender_email`).
		Joins("LEFT JOIN users u ON messages.sender_type = ? AND u.id = messages.sender_id", models.SenderUser).
		Joins("LEFT JOIN admins a ON messages.sender_type = ? AND a.id = messages.sender_id", models.SenderAdmin)
}

func scan(q *gorm.DB, op string) ([]View, error) {
	var rows []View
	if err := q.Order("messages.created_at ASC, messages.id ASC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("message: %s: %w", op, err)
	}
	return rows, nil
}

// ListByChat returns a chat's messages oldest first.
func ListByChat(ctx context.Context, db *gorm.DB, chatID uint) ([]View, error) {
	return scan(views(ctx, db).Where("messages.chat_id = ?", chatID), "list by chat")
}

// ListBySender returns every message authored by s across all chats.
func ListBySender(ctx context.Context, db *gorm.DB, s models.Sender) ([]View, error) {
	if s == nil {
		return nil, models.NewValidationError("sender", "required")
	}
	q := views(ctx, db).Where("messages.sender_type = ?", s.Type())
	switch v := s.(type) {
	case models.UserSender:
		q = q.Where("messages.sender_id = ?", v.ID)
	case models.AdminSender:
		q = q.Where("messages.sender_id = ?", v.ID)
	case models.GuestSender:
		q = q.Where("messages.guest_sender_id = ?", v.ID)
	case models.SystemSender:
	default:
		return nil, models.NewValidationError("sender", "unknown sender")
	}
	return scan(q, "list by sender")
}

// ListByCounterparty returns every message in the chats owned by cp,
// whoever wrote them.
func ListByCounterparty(ctx context.Context, db *gorm.DB, cp models.Counterparty) ([]View, error) {
	if cp == nil {
		return nil, models.NewValidationError("counterparty", "required")
	}
	q := views(ctx, db).
		Joins("JOIN chats c ON c.id = messages.chat_id").
		Where("c.kind = ?", cp.Kind())
	switch ref := cp.(type) {
	case models.UserRef:
		q = q.Where("c.user_id = ?", ref.ID)
	case models.AffiliateRef:
		q = q.Where("c.affiliate_id = ?", ref.ID)
	case models.GuestRef:
		q = q.Where("c.guest_id = ?", ref.ID)
	default:
		return nil, models.NewValidationError("counterparty", "unknown counterparty")
	}
	return scan(q, "list by counterparty")
}

// MarkRead flags every unread message of senderType in a chat as read and
// returns how many rows changed.
func MarkRead(ctx context.Context, db *gorm.DB, chatID uint, senderType models.SenderType) (int64, error) {
	if !senderType.Valid() {
		return 0, models.NewValidationError("senderType", fmt.Sprintf("unknown sender type %q", senderType))
	}
	result := db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_type = ? AND is_read = ?", chatID, senderType, false).
		Updates(map[string]interface{}{"is_read": true, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("message: mark read chat %d: %w", chatID, result.Error)
	}
	return result.RowsAffected, nil
}

// CountUnread counts unread messages of senderType in a chat.
func CountUnread(ctx context.Context, db *gorm.DB, chatID uint, senderType models.SenderType) (int64, error) {
	if !senderType.Valid() {
		return 0, models.NewValidationError("senderType", fmt.Sprintf("unknown sender type %q", senderType))
	}
	var n int64
	err := db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND sender_type = ? AND is_read = ?", chatID, senderType, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("message: count unread chat %d: %w", chatID, err)
	}
	return n, nil
}
