package db

import (
	"fmt"

	"github.com/zulandar/supportline/internal/config"
	"github.com/zulandar/supportline/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns every GORM model this module migrates. Identity tables
// come first so joins work on a fresh database; chats precede messages for
// the cascade foreign key.
func AllModels() []interface{} {
	return []interface{}{
		&models.Player{},
		&models.Operator{},
		&models.Chat{},
		&models.Message{},
		&models.AutoReply{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedAutoReplies upserts AutoReply rows from configuration, keyed on keyword.
func SeedAutoReplies(db *gorm.DB, replies []config.AutoReplyConfig) error {
	for _, ar := range replies {
		row := models.AutoReply{
			Keyword:      ar.Keyword,
			ReplyMessage: ar.Reply,
			IsActive:     ar.IsActive(),
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "keyword"}},
			DoUpdates: clause.AssignmentColumns([]string{"reply_message", "is_active", "updated_at"}),
		}).Create(&row)
		if result.Error != nil {
			return fmt.Errorf("db: seed auto reply %q: %w", ar.Keyword, result.Error)
		}
	}
	return nil
}
