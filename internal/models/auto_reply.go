package models

import "time"

// AutoReply maps an exact inbound message text to a canned response.
type AutoReply struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Keyword      string    `gorm:"size:255;not null;uniqueIndex" json:"keyword"`
	ReplyMessage string    `gorm:"type:text;not null" json:"replyMessage"`
	IsActive     bool      `gorm:"not null" json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
