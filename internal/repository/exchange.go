package repository

import (
	"context"
	"errors"

	"bookswap/internal/models"
	"bookswap/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExchangeRepository defines data operations for book requests.
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *models.Exchange) error
	GetByID(ctx context.Context, id uint) (*models.Exchange, error)
	GetByIDForUpdate(ctx context.Context, id uint) (*models.Exchange, error)
	FindPending(ctx context.Context, bookID uint, requesterID uuid.UUID) (*models.Exchange, error)
	TransitionFromPending(ctx context.Context, id uint, to models.ExchangeStatus) (bool, error)
	CancelOtherPending(ctx context.Context, bookID, keepID uint) ([]models.Exchange, error)
	List(ctx context.Context, userID uuid.UUID, direction models.RequestDirection) ([]models.Exchange, error)
	WithTx(tx *gorm.DB) ExchangeRepository
}

type exchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository creates a new exchange repository
func NewExchangeRepository(db *gorm.DB) ExchangeRepository {
	return &exchangeRepository{db: db}
}

func (r *exchangeRepository) WithTx(tx *gorm.DB) ExchangeRepository {
	return &exchangeRepository{db: tx}
}

// Create inserts a pending request. A concurrent duplicate loses on the
// partial unique index and is reported as DuplicateRequest.
func (r *exchangeRepository) Create(ctx context.Context, exchange *models.Exchange) error {
	if err := r.db.WithContext(ctx).Create(exchange).Error; err != nil {
		if IsUniqueViolation(err) {
			return models.NewDuplicateRequestError()
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *exchangeRepository) withSummaries(db *gorm.DB) *gorm.DB {
	return db.Preload("Book").Preload("Owner").Preload("Requester")
}

func (r *exchangeRepository) GetByID(ctx context.Context, id uint) (*models.Exchange, error) {
	var exchange models.Exchange
	if err := r.withSummaries(r.db.WithContext(ctx)).First(&exchange, id).Error; err != nil {
		return nil, mapLookupError(err, "Request", id)
	}
	return &exchange, nil
}

func (r *exchangeRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Exchange, error) {
	var exchange models.Exchange
	if err := forUpdate(r.db.WithContext(ctx)).First(&exchange, id).Error; err != nil {
		return nil, mapLookupError(err, "Request", id)
	}
	return &exchange, nil
}

// FindPending returns the requester's pending request for the book, or nil.
func (r *exchangeRepository) FindPending(ctx context.Context, bookID uint, requesterID uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Where("book_id = ? AND to_user_id = ? AND status = ?", bookID, requesterID, models.ExchangeStatusPending).
		First(&exchange).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &exchange, nil
}

// TransitionFromPending moves a pending request to a terminal status. It
// reports false when the row was no longer pending.
func (r *exchangeRepository) TransitionFromPending(ctx context.Context, id uint, to models.ExchangeStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Exchange{}).
		Where("id = ? AND status = ?", id, models.ExchangeStatusPending).
		Update("status", to)
	if result.Error != nil {
		return false, models.NewInternalError(result.Error)
	}
	return result.RowsAffected == 1, nil
}

// CancelOtherPending cancels every pending request for the book except keepID
// and returns the rows it cancelled.
func (r *exchangeRepository) CancelOtherPending(ctx context.Context, bookID, keepID uint) ([]models.Exchange, error) {
	var others []models.Exchange
	db := r.db.WithContext(ctx)
	if err := db.Where("book_id = ? AND id <> ? AND status = ?", bookID, keepID, models.ExchangeStatusPending).
		Find(&others).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(others) == 0 {
		return nil, nil
	}
	ids := make([]uint, len(others))
	for i := range others {
		ids[i] = others[i].ID
		others[i].Status = models.ExchangeStatusCancelled
	}
	if err := db.Model(&models.Exchange{}).Where("id IN ? AND status = ?", ids, models.ExchangeStatusPending).
		Update("status", models.ExchangeStatusCancelled).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return others, nil
}

func (r *exchangeRepository) List(ctx context.Context, userID uuid.UUID, direction models.RequestDirection) ([]models.Exchange, error) {
	column := "from_user_id"
	if direction == models.RequestsOutgoing {
		column = "to_user_id"
	}
	defer observability.TrackQuery("list", "exchanges")()

	var exchanges []models.Exchange
	if err := r.withSummaries(r.db.WithContext(ctx)).
		Where(column+" = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&exchanges).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return exchanges, nil
}
