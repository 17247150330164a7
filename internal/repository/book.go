package repository

import (
	"context"
	"strings"

	"bookswap/internal/models"
	"bookswap/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BookFilter narrows a book listing.
type BookFilter struct {
	Search        string
	OwnerID       *uuid.UUID
	ExcludeOwner  *uuid.UUID
	AvailableOnly bool
	// Bounds restricts results to a latitude/longitude box.
	Bounds *BoundingBox
	Limit  int
	Offset int
}

// BoundingBox is an inclusive latitude/longitude rectangle.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// BookRepository defines data operations for book listings and their images.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	GetByID(ctx context.Context, id uint) (*models.Book, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Book, error)
	List(ctx context.Context, filter BookFilter) ([]models.Book, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	TransferOwnership(ctx context.Context, id uint, newOwner *models.Profile, qrCode string) error
	UpdateLocationForOwner(ctx context.Context, ownerID uuid.UUID, location string, lat, lon *float64) error
	IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uint, error)
	AddImage(ctx context.Context, image *models.BookImage) error
	ReplaceImages(ctx context.Context, bookID uint, images []models.BookImage) ([]models.BookImage, error)
	DeleteWithDependents(ctx context.Context, id uint) ([]models.BookImage, error)
	WithTx(tx *gorm.DB) BookRepository
}

type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) WithTx(tx *gorm.DB) BookRepository {
	return &bookRepository{db: tx}
}

func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewConflictError("You already listed a book with this title and author")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *bookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).
		Preload("Owner").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&book, id).Error; err != nil {
		return nil, mapLookupError(err, "Book", id)
	}
	return &book, nil
}

func (r *bookRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := forUpdate(r.db.WithContext(ctx)).First(&book, id).Error; err != nil {
		return nil, mapLookupError(err, "Book", id)
	}
	return &book, nil
}

func (r *bookRepository) List(ctx context.Context, filter BookFilter) ([]models.Book, error) {
	defer observability.TrackQuery("list", "books")()
	q := r.db.WithContext(ctx).Model(&models.Book{}).
		Preload("Owner").
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })

	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like)
	}
	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.ExcludeOwner != nil {
		q = q.Where("owner_id <> ?", *filter.ExcludeOwner)
	}
	if filter.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	if b := filter.Bounds; b != nil {
		q = q.Where("latitude BETWEEN ? AND ? AND longitude BETWEEN ? AND ?",
			b.MinLat, b.MaxLat, b.MinLon, b.MaxLon)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var books []models.Book
	if err := q.Order("created_at DESC, id DESC").Find(&books).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return books, nil
}

func (r *bookRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Book{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		if IsUniqueViolation(result.Error) {
			return models.NewConflictError("You already listed a book with this title and author")
		}
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Book", id)
	}
	return nil
}

// TransferOwnership moves the book to newOwner and re-copies the owner's
// location. A non-empty qrCode replaces the stored one.
func (r *bookRepository) TransferOwnership(ctx context.Context, id uint, newOwner *models.Profile, qrCode string) error {
	fields := map[string]any{
		"owner_id":  newOwner.ID,
		"location":  newOwner.Location,
		"latitude":  newOwner.Latitude,
		"longitude": newOwner.Longitude,
	}
	if qrCode != "" {
		fields["qr_code"] = qrCode
	}
	return r.UpdateFields(ctx, id, fields)
}

func (r *bookRepository) UpdateLocationForOwner(ctx context.Context, ownerID uuid.UUID, location string, lat, lon *float64) error {
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("owner_id = ?", ownerID).
		Updates(map[string]any{"location": location, "latitude": lat, "longitude": lon}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *bookRepository) IDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Where("owner_id = ?", ownerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *bookRepository) AddImage(ctx context.Context, image *models.BookImage) error {
	if err := r.db.WithContext(ctx).Create(image).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ReplaceImages swaps the image set of a book and returns the rows that were removed.
func (r *bookRepository) ReplaceImages(ctx context.Context, bookID uint, images []models.BookImage) ([]models.BookImage, error) {
	var old []models.BookImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", bookID).Find(&old).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&models.BookImage{}).Error; err != nil {
			return err
		}
		for i := range images {
			images[i].BookID = bookID
		}
		if len(images) == 0 {
			return nil
		}
		return tx.Create(&images).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return old, nil
}

// DeleteWithDependents removes the book with its requests, wishlist entries,
// history, forum, notifications and image rows. The removed image rows are
// returned so stored objects can be cleaned up after commit.
func (r *bookRepository) DeleteWithDependents(ctx context.Context, id uint) ([]models.BookImage, error) {
	var images []models.BookImage
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Find(&images).Error; err != nil {
			return err
		}
		if err := deleteBookDependents(tx, []uint{id}); err != nil {
			return err
		}
		result := tx.Delete(&models.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return models.NewNotFoundError("Book", id)
		}
		return nil
	})
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return images, nil
}

func deleteBookDependents(tx *gorm.DB, bookIDs []uint) error {
	forumIDs := tx.Model(&models.Forum{}).Select("id").Where("book_id IN ?", bookIDs)
	if err := tx.Where("forum_id IN (?)", forumIDs).Delete(&models.ForumPost{}).Error; err != nil {
		return err
	}
	for _, model := range []any{
		&models.Forum{},
		&models.Exchange{},
		&models.WishlistItem{},
		&models.BookHistoryEntry{},
		&models.BookImage{},
	} {
		if err := tx.Where("book_id IN ?", bookIDs).Delete(model).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("related_book_id IN ?", bookIDs).Delete(&models.Notification{}).Error; err != nil {
		return err
	}
	return tx.Model(&models.Conversation{}).Where("book_id IN ?", bookIDs).Update("book_id", nil).Error
}
