package models

import (
	"time"

	"github.com/google/uuid"
)

// BookCondition describes the physical state of a listed book.
type BookCondition string

const (
	BookConditionNew  BookCondition = "new"
	BookConditionUsed BookCondition = "used"
)

// Valid reports whether c is a known condition.
func (c BookCondition) Valid() bool {
	return c == BookConditionNew || c == BookConditionUsed
}

// Book is a listing owned by a profile. Location fields mirror the owner's
// profile and are rewritten whenever the owner's location changes.
type Book struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_books_owner_title_author,priority:1" json:"owner_id"`
	Owner       *ProfileSummary `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Title       string          `gorm:"size:255;not null;uniqueIndex:idx_books_owner_title_author,priority:2" json:"title"`
	Author      string          `gorm:"size:255;not null;uniqueIndex:idx_books_owner_title_author,priority:3" json:"author"`
	Description string          `gorm:"type:text" json:"description"`
	Condition   BookCondition   `gorm:"type:varchar(10);not null" json:"condition"`
	Location    string          `gorm:"size:255" json:"location"`
	Latitude    *float64        `gorm:"index:idx_books_coordinates,priority:1" json:"latitude"`
	Longitude   *float64        `gorm:"index:idx_books_coordinates,priority:2" json:"longitude"`
	Points      int             `gorm:"not null" json:"points"`
	IsAvailable bool            `gorm:"not null;default:true;index" json:"is_available"`
	QRCode      string          `gorm:"type:text" json:"qr_code"`
	Images      []BookImage     `gorm:"foreignKey:BookID" json:"images,omitempty"`
	DistanceKm  *float64        `gorm:"-" json:"distance_km,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Book) TableName() string {
	return "books"
}

// BookImage is a stored picture of a book.
type BookImage struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BookID     uint      `gorm:"not null;index" json:"book_id"`
	URL        string    `gorm:"size:512;not null" json:"image_url"`
	StorageKey string    `gorm:"size:255" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (BookImage) TableName() string {
	return "book_images"
}

// BookSummary is the compact book view embedded in exchanges and wishlists.
type BookSummary struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	Title   string    `json:"title"`
	Author  string    `json:"author"`
	Points  int       `json:"points"`
	OwnerID uuid.UUID `gorm:"type:uuid" json:"owner_id"`
}

// TableName maps the summary onto the books table.
func (BookSummary) TableName() string {
	return "books"
}
