package models

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem records a user's interest in a book.
type WishlistItem struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_book,priority:1" json:"user_id"`
	BookID    uint         `gorm:"not null;uniqueIndex:idx_wishlist_user_book,priority:2;index" json:"book_id"`
	Book      *BookSummary `gorm:"foreignKey:BookID" json:"book,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// TableName specifies the table name for GORM
func (WishlistItem) TableName() string {
	return "wishlists"
}

// BookHistoryEntry is a reader's note left on a book as it travels between owners.
type BookHistoryEntry struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	BookID          uint            `gorm:"not null;index" json:"book_id"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	User            *ProfileSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
	City            string          `gorm:"size:120" json:"city"`
	ReadingDuration string          `gorm:"size:120" json:"reading_duration"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (BookHistoryEntry) TableName() string {
	return "book_history"
}

// ExchangeStall is a physical meetup point where books change hands.
type ExchangeStall struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Name      string    `gorm:"size:120;not null" json:"name"`
	Location  string    `gorm:"size:255;not null" json:"location"`
	Latitude  *float64  `json:"latitude"`
	Longitude *float64  `json:"longitude"`
	Contact   string    `gorm:"size:120" json:"contact"`
	Timings   string    `gorm:"size:120" json:"timings"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ExchangeStall) TableName() string {
	return "exchange_stalls"
}

// Forum is the discussion board attached to a single book.
type Forum struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BookID    uint      `gorm:"not null;uniqueIndex" json:"book_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Forum) TableName() string {
	return "forums"
}

// ForumPost is a message on a book forum.
type ForumPost struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ForumID   uint            `gorm:"not null;index" json:"forum_id"`
	UserID    uuid.UUID       `gorm:"type:uuid;not null" json:"user_id"`
	User      *ProfileSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content   string          `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (ForumPost) TableName() string {
	return "forum_posts"
}

// Conversation is a two-party chat, optionally about a specific book.
type Conversation struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	BookID    *uint                `gorm:"index" json:"book_id,omitempty"`
	Members   []ConversationMember `gorm:"foreignKey:ConversationID" json:"members,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationMember links a profile to a conversation.
type ConversationMember struct {
	ConversationID uint            `gorm:"primaryKey" json:"conversation_id"`
	UserID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"user_id"`
	User           *ProfileSummary `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (ConversationMember) TableName() string {
	return "conversation_members"
}

// Message is a chat message inside a conversation.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}
