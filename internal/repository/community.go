package repository

import (
	"context"

	"bookswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WishlistRepository defines data operations for wishlists.
type WishlistRepository interface {
	Add(ctx context.Context, item *models.WishlistItem) error
	Remove(ctx context.Context, userID uuid.UUID, bookID uint) error
	List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error)
}

type wishlistRepository struct {
	db *gorm.DB
}

// NewWishlistRepository creates a new wishlist repository
func NewWishlistRepository(db *gorm.DB) WishlistRepository {
	return &wishlistRepository{db: db}
}

func (r *wishlistRepository) Add(ctx context.Context, item *models.WishlistItem) error {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("Book is already in your wishlist")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *wishlistRepository) Remove(ctx context.Context, userID uuid.UUID, bookID uint) error {
	result := r.db.WithContext(ctx).Where("user_id = ? AND book_id = ?", userID, bookID).Delete(&models.WishlistItem{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Wishlist item", bookID)
	}
	return nil
}

func (r *wishlistRepository) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	var items []models.WishlistItem
	if err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&items).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return items, nil
}

// HistoryRepository defines data operations for book reading history.
type HistoryRepository interface {
	Create(ctx context.Context, entry *models.BookHistoryEntry) error
	ListByBook(ctx context.Context, bookID uint) ([]models.BookHistoryEntry, error)
}

type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(ctx context.Context, entry *models.BookHistoryEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *historyRepository) ListByBook(ctx context.Context, bookID uint) ([]models.BookHistoryEntry, error) {
	var entries []models.BookHistoryEntry
	if err := r.db.WithContext(ctx).Preload("User").
		Where("book_id = ?", bookID).Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return entries, nil
}

// StallRepository defines data operations for exchange stalls.
type StallRepository interface {
	Create(ctx context.Context, stall *models.ExchangeStall) error
	GetByID(ctx context.Context, id uint) (*models.ExchangeStall, error)
	Update(ctx context.Context, stall *models.ExchangeStall) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, limit, offset int) ([]models.ExchangeStall, error)
}

type stallRepository struct {
	db *gorm.DB
}

// NewStallRepository creates a new stall repository
func NewStallRepository(db *gorm.DB) StallRepository {
	return &stallRepository{db: db}
}

func (r *stallRepository) Create(ctx context.Context, stall *models.ExchangeStall) error {
	if err := r.db.WithContext(ctx).Create(stall).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *stallRepository) GetByID(ctx context.Context, id uint) (*models.ExchangeStall, error) {
	var stall models.ExchangeStall
	if err := r.db.WithContext(ctx).First(&stall, id).Error; err != nil {
		return nil, mapLookupError(err, "Exchange stall", id)
	}
	return &stall, nil
}

func (r *stallRepository) Update(ctx context.Context, stall *models.ExchangeStall) error {
	if err := r.db.WithContext(ctx).Save(stall).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *stallRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.ExchangeStall{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *stallRepository) List(ctx context.Context, limit, offset int) ([]models.ExchangeStall, error) {
	var stalls []models.ExchangeStall
	if err := r.db.WithContext(ctx).Order("name ASC, id ASC").
		Limit(clampLimit(limit, 50, 100)).Offset(offset).Find(&stalls).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return stalls, nil
}

// ForumRepository defines data operations for book forums and their posts.
type ForumRepository interface {
	GetByBook(ctx context.Context, bookID uint) (*models.Forum, error)
	GetByID(ctx context.Context, id uint) (*models.Forum, error)
	Create(ctx context.Context, forum *models.Forum) error
	CreatePost(ctx context.Context, post *models.ForumPost) error
	ListPosts(ctx context.Context, forumID uint, limit, offset int) ([]models.ForumPost, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository creates a new forum repository
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) GetByBook(ctx context.Context, bookID uint) (*models.Forum, error) {
	var forum models.Forum
	if err := r.db.WithContext(ctx).Where("book_id = ?", bookID).First(&forum).Error; err != nil {
		return nil, mapLookupError(err, "Forum for book", bookID)
	}
	return &forum, nil
}

func (r *forumRepository) GetByID(ctx context.Context, id uint) (*models.Forum, error) {
	var forum models.Forum
	if err := r.db.WithContext(ctx).First(&forum, id).Error; err != nil {
		return nil, mapLookupError(err, "Forum", id)
	}
	return &forum, nil
}

func (r *forumRepository) Create(ctx context.Context, forum *models.Forum) error {
	if err := r.db.WithContext(ctx).Create(forum).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("This book already has a forum")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *forumRepository) CreatePost(ctx context.Context, post *models.ForumPost) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return r.db.WithContext(ctx).Preload("User").First(post, post.ID).Error
}

func (r *forumRepository) ListPosts(ctx context.Context, forumID uint, limit, offset int) ([]models.ForumPost, error) {
	var posts []models.ForumPost
	if err := r.db.WithContext(ctx).Preload("User").
		Where("forum_id = ?", forumID).Order("created_at ASC, id ASC").
		Limit(clampLimit(limit, 50, 100)).Offset(offset).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}
