// Package autoreply maps inbound message text to configured canned replies.
package autoreply

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
)

// Lookup returns the auto-reply whose keyword equals text exactly, or nil
// when none matches. No trimming or case folding is applied; equality is
// whatever the store's collation says it is. Inactive rows are returned too
// so callers can tell "matched but disabled" from "no match".
func Lookup(ctx context.Context, db *gorm.DB, text string) (*models.AutoReply, error) {
	if text == "" {
		return nil, nil
	}
	var ar models.AutoReply
	err := db.WithContext(ctx).Where("keyword = ?", text).Limit(1).Find(&ar).Error
	if err != nil {
		return nil, fmt.Errorf("autoreply: lookup: %w", err)
	}
	if ar.ID == 0 {
		return nil, nil
	}
	return &ar, nil
}

// Matcher adapts Lookup to a bound database handle.
type Matcher struct {
	db *gorm.DB
}

// NewMatcher creates a Matcher.
func NewMatcher(db *gorm.DB) *Matcher {
	return &Matcher{db: db}
}

// Match returns the active auto-reply for text, or nil.
func (m *Matcher) Match(ctx context.Context, text string) (*models.AutoReply, error) {
	ar, err := Lookup(ctx, m.db, text)
	if err != nil || ar == nil || !ar.IsActive {
		return nil, err
	}
	return ar, nil
}

// List returns all auto-replies ordered by keyword.
func List(ctx context.Context, db *gorm.DB) ([]models.AutoReply, error) {
	var rows []models.AutoReply
	if err := db.WithContext(ctx).Order("keyword ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("autoreply: list: %w", err)
	}
	return rows, nil
}

// Get returns one auto-reply by id.
func Get(ctx context.Context, db *gorm.DB, id uint) (*models.AutoReply, error) {
	var ar models.AutoReply
	err := db.WithContext(ctx).First(&ar, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("autoreply: get %d: %w", id, err)
	}
	return &ar, nil
}

// Create inserts a new auto-reply. Keywords are unique.
func Create(ctx context.Context, db *gorm.DB, keyword, reply string, active bool) (*models.AutoReply, error) {
	if keyword == "" {
		return nil, models.NewValidationError("keyword", "required")
	}
	if reply == "" {
		return nil, models.NewValidationError("replyMessage", "required")
	}

	var existing int64
	if err := db.WithContext(ctx).Model(&models.AutoReply{}).Where("keyword = ?", keyword).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("autoreply: create %q: %w", keyword, err)
	}
	if existing > 0 {
		return nil, models.NewValidationError("keyword", fmt.Sprintf("%q already exists", keyword))
	}

	ar := models.AutoReply{Keyword: keyword, ReplyMessage: reply, IsActive: active}
	if err := db.WithContext(ctx).Create(&ar).Error; err != nil {
		return nil, fmt.Errorf("autoreply: create %q: %w", keyword, err)
	}
	return &ar, nil
}

// Update holds the mutable fields of an auto-reply; nil fields are left alone.
type Update struct {
	ReplyMessage *string
	IsActive     *bool
}

// Apply changes an existing auto-reply and returns the updated row.
func Apply(ctx context.Context, db *gorm.DB, id uint, u Update) (*models.AutoReply, error) {
	changes := map[string]interface{}{}
	if u.ReplyMessage != nil {
		if *u.ReplyMessage == "" {
			return nil, models.NewValidationError("replyMessage", "must not be empty")
		}
		changes["reply_message"] = *u.ReplyMessage
	}
	if u.IsActive != nil {
		changes["is_active"] = *u.IsActive
	}
	if len(changes) > 0 {
		result := db.WithContext(ctx).Model(&models.AutoReply{}).Where("id = ?", id).Updates(changes)
		if result.Error != nil {
			return nil, fmt.Errorf("autoreply: update %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, models.ErrNotFound
		}
	}
	return Get(ctx, db, id)
}

// SetActive toggles an auto-reply on or off.
func SetActive(ctx context.Context, db *gorm.DB, id uint, active bool) (*models.AutoReply, error) {
	return Apply(ctx, db, id, Update{IsActive: &active})
}

// Delete removes an auto-reply.
func Delete(ctx context.Context, db *gorm.DB, id uint) error {
	result := db.WithContext(ctx).Delete(&models.AutoReply{}, id)
	if result.Error != nil {
		return fmt.Errorf("autoreply: delete %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
