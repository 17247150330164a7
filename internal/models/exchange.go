package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeStatus is the lifecycle state of a book request.
type ExchangeStatus string

const (
	// ExchangeStatusPending is the only non-terminal state.
	ExchangeStatusPending ExchangeStatus = "pending"
	// ExchangeStatusCompleted means the owner accepted and the book changed hands.
	ExchangeStatusCompleted ExchangeStatus = "completed"
	// ExchangeStatusCancelled means the owner declined.
	ExchangeStatusCancelled ExchangeStatus = "cancelled"
)

// Terminal reports whether no transition may leave s.
func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeStatusCompleted || s == ExchangeStatusCancelled
}

// Exchange is one requester's offer to acquire a specific book.
// At most one pending exchange exists per (book, requester); the database
// enforces this with a partial unique index created by migrations.
type Exchange struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	BookID     uint            `gorm:"not null;index" json:"book_id"`
	Book       *BookSummary    `gorm:"foreignKey:BookID" json:"book,omitempty"`
	FromUserID uuid.UUID       `gorm:"type:uuid;not null;index" json:"from_user"`
	Owner      *ProfileSummary `gorm:"foreignKey:FromUserID" json:"owner,omitempty"`
	ToUserID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"to_user"`
	Requester  *ProfileSummary `gorm:"foreignKey:ToUserID" json:"requester,omitempty"`
	PointsUsed int             `gorm:"not null" json:"points_used"`
	Status     ExchangeStatus  `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Exchange) TableName() string {
	return "exchanges"
}

// RequestDirection selects which side of an exchange the caller is on.
type RequestDirection string

const (
	// RequestsIncoming lists requests for books the caller owns.
	RequestsIncoming RequestDirection = "incoming"
	// RequestsOutgoing lists requests the caller made.
	RequestsOutgoing RequestDirection = "outgoing"
)

// Decision is an owner's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision accepts decision words and the status vocabulary older
// clients send ("completed", "cancelled", "rejected").
func ParseDecision(s string) (Decision, bool) {
	switch s {
	case "accept", "accepted", string(ExchangeStatusCompleted):
		return DecisionAccept, true
	case "reject", "rejected", string(ExchangeStatusCancelled):
		return DecisionReject, true
	}
	return "", false
}
