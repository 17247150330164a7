// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultReputation is the reputation of a profile that never had one written.
	DefaultReputation = 100
)

// Profile is the per-user account holding point and reputation balances.
// The ID is the subject issued by the identity provider.
type Profile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username   string    `gorm:"size:50;not null;uniqueIndex" json:"username"`
	Location   string    `gorm:"size:255" json:"location"`
	Latitude   *float64  `json:"latitude"`
	Longitude  *float64  `json:"longitude"`
	Points     int       `gorm:"not null;default:0" json:"points"`
	Reputation int       `gorm:"not null;default:100" json:"reputation"`
	ImageURL   string    `gorm:"size:512" json:"image_url,omitempty"`
	ImageKey   string    `gorm:"size:255" json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Profile) TableName() string {
	return "profiles"
}

// HasCoordinates reports whether the profile location resolved to a point.
func (p *Profile) HasCoordinates() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// ProfileSummary is the public view of a counterparty embedded in other resources.
type ProfileSummary struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username string    `json:"username"`
}

// TableName maps the summary onto the profiles table.
func (ProfileSummary) TableName() string {
	return "profiles"
}

// ProfileStats aggregates a profile's balances and activity.
type ProfileStats struct {
	Points     int   `json:"points"`
	Reputation int   `json:"reputation"`
	TotalBooks int64 `json:"total_books"`
	Exchanges  int64 `json:"exchanges"`
}
