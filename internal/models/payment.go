package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PaymentStatus tracks a point purchase.
type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
)

// PointPackage is a purchasable bundle of points.
type PointPackage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	Points      int    `json:"points"`
}

// Payment records a verified point purchase. SessionID is unique so a
// checkout session credits points at most once.
type Payment struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Provider    string         `gorm:"size:32;not null" json:"provider"`
	SessionID   string         `gorm:"size:255;not null;uniqueIndex" json:"session_id"`
	PackageID   string         `gorm:"size:32" json:"package_id"`
	AmountCents int64          `gorm:"not null" json:"amount_cents"`
	PointsAdded int            `gorm:"not null" json:"points_added"`
	Status      PaymentStatus  `gorm:"type:varchar(20);not null" json:"status"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
