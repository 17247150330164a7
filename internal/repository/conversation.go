package repository

import (
	"context"
	"errors"

	"bookswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConversationRepository defines data operations for direct chats.
type ConversationRepository interface {
	Create(ctx context.Context, bookID *uint, members ...uuid.UUID) (*models.Conversation, error)
	FindBetween(ctx context.Context, a, b uuid.UUID, bookID *uint) (*models.Conversation, error)
	GetByID(ctx context.Context, id uint) (*models.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error)
	IsMember(ctx context.Context, conversationID uint, userID uuid.UUID) (bool, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]models.Message, error)
}

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, bookID *uint, members ...uuid.UUID) (*models.Conversation, error) {
	conv := &models.Conversation{BookID: bookID}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for _, userID := range members {
			if err := tx.Create(&models.ConversationMember{ConversationID: conv.ID, UserID: userID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, conv.ID)
}

// FindBetween returns the conversation both users belong to about bookID, or nil.
func (r *conversationRepository) FindBetween(ctx context.Context, a, b uuid.UUID, bookID *uint) (*models.Conversation, error) {
	db := r.db.WithContext(ctx)
	q := db.Model(&models.Conversation{}).
		Where("id IN (?)", db.Model(&models.ConversationMember{}).Select("conversation_id").Where("user_id = ?", a)).
		Where("id IN (?)", db.Model(&models.ConversationMember{}).Select("conversation_id").Where("user_id = ?", b))
	if bookID != nil {
		q = q.Where("book_id = ?", *bookID)
	} else {
		q = q.Where("book_id IS NULL")
	}

	var conv models.Conversation
	if err := q.Order("id ASC").First(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return r.GetByID(ctx, conv.ID)
}

func (r *conversationRepository) GetByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.db.WithContext(ctx).Preload("Members.User").First(&conv, id).Error; err != nil {
		return nil, mapLookupError(err, "Conversation", id)
	}
	return &conv, nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Conversation, error) {
	db := r.db.WithContext(ctx)
	var convs []models.Conversation
	if err := db.Preload("Members.User").
		Where("id IN (?)", db.Model(&models.ConversationMember{}).Select("conversation_id").Where("user_id = ?", userID)).
		Order("created_at DESC, id DESC").Find(&convs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return convs, nil
}

func (r *conversationRepository) IsMember(ctx context.Context, conversationID uint, userID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *conversationRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ListMessages returns messages oldest first.
func (r *conversationRepository) ListMessages(ctx context.Context, conversationID uint, limit, offset int) ([]models.Message, error) {
	var msgs []models.Message
	if err := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").Limit(clampLimit(limit, 100, 500)).Offset(offset).
		Find(&msgs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return msgs, nil
}
