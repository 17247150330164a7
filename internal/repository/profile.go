package repository

import (
	"context"
	"errors"

	"bookswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProfileRepository defines data operations for profiles and their balances.
type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	UpdateBalances(ctx context.Context, id uuid.UUID, points, reputation int) error
	Stats(ctx context.Context, id uuid.UUID) (*models.ProfileStats, error)
	DeleteWithDependents(ctx context.Context, id uuid.UUID) ([]string, error)
	WithTx(tx *gorm.DB) ProfileRepository
}

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) WithTx(tx *gorm.DB) ProfileRepository {
	return &profileRepository{db: tx}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Username or profile already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, "Profile", id)
	}
	return &profile, nil
}

func (r *profileRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := forUpdate(r.db.WithContext(ctx)).First(&profile, "id = ?", id).Error; err != nil {
		return nil, mapLookupError(err, "Profile", id)
	}
	return &profile, nil
}

func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, mapLookupError(err, "Profile", username)
	}
	return &profile, nil
}

func (r *profileRepository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return models.NewConflictError("Username already taken")
		}
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	return nil
}

// UpdateBalances writes both balances in one statement. Callers hold the row lock.
func (r *profileRepository) UpdateBalances(ctx context.Context, id uuid.UUID, points, reputation int) error {
	result := r.db.WithContext(ctx).Model(&models.Profile{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"points": points, "reputation": reputation})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Profile", id)
	}
	return nil
}

func (r *profileRepository) Stats(ctx context.Context, id uuid.UUID) (*models.ProfileStats, error) {
	profile, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &models.ProfileStats{Points: profile.Points, Reputation: profile.Reputation}
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Book{}).Where("owner_id = ?", id).Count(&stats.TotalBooks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := db.Model(&models.Exchange{}).
		Where("(from_user_id = ? OR to_user_id = ?) AND status = ?", id, id, models.ExchangeStatusCompleted).
		Count(&stats.Exchanges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stats, nil
}

// DeleteWithDependents removes the profile and every row that references it,
// including owned books and their dependents. It returns the storage keys of
// images that were attached to removed rows so the caller can delete the objects.
func (r *profileRepository) DeleteWithDependents(ctx context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.First(&profile, "id = ?", id).Error; err != nil {
			return mapLookupError(err, "Profile", id)
		}
		if profile.ImageKey != "" {
			keys = append(keys, profile.ImageKey)
		}

		var bookIDs []uint
		if err := tx.Model(&models.Book{}).Where("owner_id = ?", id).Pluck("id", &bookIDs).Error; err != nil {
			return err
		}
		if len(bookIDs) > 0 {
			var imageKeys []string
			if err := tx.Model(&models.BookImage{}).Where("book_id IN ? AND storage_key <> ''", bookIDs).
				Pluck("storage_key", &imageKeys).Error; err != nil {
				return err
			}
			keys = append(keys, imageKeys...)
			if err := deleteBookDependents(tx, bookIDs); err != nil {
				return err
			}
			if err := tx.Where("id IN ?", bookIDs).Delete(&models.Book{}).Error; err != nil {
				return err
			}
		}

		memberOf := func() *gorm.DB {
			return tx.Model(&models.ConversationMember{}).Select("conversation_id").Where("user_id = ?", id)
		}
		steps := []struct {
			model any
			query string
			args  []any
		}{
			{&models.Message{}, "conversation_id IN (?)", []any{memberOf()}},
			{&models.ConversationMember{}, "conversation_id IN (?)", []any{memberOf()}},
			{&models.ForumPost{}, "user_id = ?", []any{id}},
			{&models.BookHistoryEntry{}, "user_id = ?", []any{id}},
			{&models.WishlistItem{}, "user_id = ?", []any{id}},
			{&models.Notification{}, "user_id = ?", []any{id}},
			{&models.Exchange{}, "from_user_id = ? OR to_user_id = ?", []any{id, id}},
			{&models.Payment{}, "user_id = ?", []any{id}},
			{&models.ExchangeStall{}, "created_by = ?", []any{id}},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("id NOT IN (?)", tx.Model(&models.ConversationMember{}).Select("conversation_id")).
			Delete(&models.Conversation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Profile{}, "id = ?", id).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return keys, nil
}
