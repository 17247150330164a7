package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a user-visible event produced by a state transition.
type Notification struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_notifications_user_read,priority:1" json:"user_id"`
	Message       string    `gorm:"type:text;not null" json:"message"`
	RelatedBookID *uint     `gorm:"index" json:"related_book_id,omitempty"`
	ActionLink    string    `gorm:"size:255" json:"action_link,omitempty"`
	IsRead        bool      `gorm:"not null;default:false;index:idx_notifications_user_read,priority:2" json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Notification) TableName() string {
	return "notifications"
}
