// Package chat persists support conversation threads.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// Create inserts a new chat. The caller builds it with models.NewChat so
// exactly one counterparty column is populated.
func Create(ctx context.Context, db *gorm.DB, c *models.Chat) error {
	if c.Counterparty() == nil {
		return models.NewValidationError("counterparty", "chat must have exactly one counterparty matching its kind")
	}
	if c.Kind == models.KindGuest && c.UserID != nil {
		return models.NewValidationError("userId", "guest chats cannot reference a user")
	}
	if !c.Status.Valid() {
		return models.NewValidationError("status", fmt.Sprintf("unknown status %q", c.Status))
	}
	if err := db.WithContext(ctx).Omit("Messages").Create(c).Error; err != nil {
		return fmt.Errorf("chat: create: %w", err)
	}
	return nil
}

// Get returns a chat with its messages in conversation order.
func Get(ctx context.Context, db *gorm.DB, id uint) (*models.Chat, error) {
	var c models.Chat
	err := db.WithContext(ctx).
		Preload("Messages", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: get %d: %w", id, err)
	}
	return &c, nil
}

// Find returns a chat without its messages.
func Find(ctx context.Context, db *gorm.DB, id uint) (*models.Chat, error) {
	var c models.Chat
	err := db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: find %d: %w", id, err)
	}
	return &c, nil
}

// Exists reports whether a chat with id exists.
func Exists(ctx context.Context, db *gorm.DB, id uint) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Chat{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("chat: exists %d: %w", id, err)
	}
	return count > 0, nil
}

// ListByUser returns chats owned by a registered player, most recently
// updated first.
func ListByUser(ctx context.Context, db *gorm.DB, userID uint) ([]models.Chat, error) {
	return list(ctx, db, "user_id = ?", userID)
}

// ListByGuest returns chats owned by an anonymous guest.
func ListByGuest(ctx context.Context, db *gorm.DB, guestID string) ([]models.Chat, error) {
	if guestID == "" {
		return nil, models.NewValidationError("guestId", "required")
	}
	return list(ctx, db, "guest_id = ?", guestID)
}

// ListByAffiliate returns admin threads owned by an affiliate operator.
func ListByAffiliate(ctx context.Context, db *gorm.DB, affiliateID uint) ([]models.Chat, error) {
	return list(ctx, db, "affiliate_id = ?", affiliateID)
}

// ListByOperator returns chats assigned to an operator or owned by it as an
// affiliate.
func ListByOperator(ctx context.Context, db *gorm.DB, operatorID uint) ([]models.Chat, error) {
	return list(ctx, db, "operator_id = ? OR affiliate_id = ?", operatorID, operatorID)
}

func list(ctx context.Context, db *gorm.DB, query string, args ...interface{}) ([]models.Chat, error) {
	var chats []models.Chat
	if err := db.WithContext(ctx).Where(query, args...).
		Order("updated_at DESC, id DESC").Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("chat: list: %w", err)
	}
	return chats, nil
}

// FindActive returns the most recent non-closed chat owned by cp, or nil.
func FindActive(ctx context.Context, db *gorm.DB, cp models.Counterparty) (*models.Chat, error) {
	q := db.WithContext(ctx).Where("kind = ? AND status <> ?", cp.Kind(), models.StatusClosed)
	switch ref := cp.(type) {
	case models.UserRef:
		q = q.Where("user_id = ?", ref.ID)
	case models.AffiliateRef:
		q = q.Where("affiliate_id = ?", ref.ID)
	case models.GuestRef:
		q = q.Where("guest_id = ?", ref.ID)
	default:
		return nil, models.NewValidationError("counterparty", "unknown counterparty")
	}

	var chats []models.Chat
	if err := q.Order("updated_at DESC, id DESC").Limit(1).Find(&chats).Error; err != nil {
		return nil, fmt.Errorf("chat: find active: %w", err)
	}
	if len(chats) == 0 {
		return nil, nil
	}
	return &chats[0], nil
}

// UpdateStatus sets a chat's status and stamps updated_at. Unknown ids
// return models.ErrNotFound.
func UpdateStatus(ctx context.Context, db *gorm.DB, id uint, status models.ChatStatus) (*models.Chat, error) {
	if !status.Valid() {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	return update(ctx, db, id, map[string]interface{}{"status": status})
}

// AssignOperator sets a chat's operator without touching its status.
func AssignOperator(ctx context.Context, db *gorm.DB, id, operatorID uint) (*models.Chat, error) {
	if operatorID == 0 {
		return nil, models.NewValidationError("operatorId", "required")
	}
	return update(ctx, db, id, map[string]interface{}{"operator_id": operatorID})
}

// update applies changes to an existing chat. The existence check comes
// first because MySQL reports zero affected rows for no-op updates.
func update(ctx context.Context, db *gorm.DB, id uint, changes map[string]interface{}) (*models.Chat, error) {
	var c models.Chat
	err := db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chat: update %d: %w", id, err)
	}

	changes["updated_at"] = time.Now()
	if err := db.WithContext(ctx).Model(&models.Chat{}).Where("id = ?", id).Updates(changes).Error; err != nil {
		return nil, fmt.Errorf("chat: update %d: %w", id, err)
	}

	var fresh models.Chat
	if err := db.WithContext(ctx).First(&fresh, id).Error; err != nil {
		return nil, fmt.Errorf("chat: reload %d: %w", id, err)
	}
	return &fresh, nil
}

// Delete removes a chat and all of its messages.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("chat_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return fmt.Errorf("chat: delete %d messages: %w", id, err)
		}
		result := tx.Delete(&models.Chat{}, id)
		if result.Error != nil {
			return fmt.Errorf("chat: delete %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}
