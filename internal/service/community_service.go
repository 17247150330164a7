package service

import (
	"context"
	"fmt"

	"bookswap/internal/geocoding"
	"bookswap/internal/models"
	"bookswap/internal/repository"
	"bookswap/internal/validation"

	"github.com/google/uuid"
)

const (
	maxHistoryFieldLen = 120
	maxNotesLen        = 2000
	maxForumPostLen    = 5000
	maxStallFieldLen   = 120
)

// WishlistService manages the books a user is watching.
type WishlistService struct {
	wishlist repository.WishlistRepository
	books    repository.BookRepository
}

func NewWishlistService(wishlist repository.WishlistRepository, books repository.BookRepository) *WishlistService {
	return &WishlistService{wishlist: wishlist, books: books}
}

func (s *WishlistService) Add(ctx context.Context, userID uuid.UUID, bookID uint) (*models.WishlistItem, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID == userID {
		return nil, models.NewValidationError("You already own this book")
	}
	item := &models.WishlistItem{UserID: userID, BookID: bookID}
	if err := s.wishlist.Add(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *WishlistService) Remove(ctx context.Context, userID uuid.UUID, bookID uint) error {
	return s.wishlist.Remove(ctx, userID, bookID)
}

func (s *WishlistService) List(ctx context.Context, userID uuid.UUID) ([]models.WishlistItem, error) {
	return s.wishlist.List(ctx, userID)
}

// HistoryService records where a book has travelled.
type HistoryService struct {
	history repository.HistoryRepository
	books   repository.BookRepository
}

type AddHistoryInput struct {
	UserID          uuid.UUID
	BookID          uint
	City            string
	ReadingDuration string
	Notes           string
}

func NewHistoryService(history repository.HistoryRepository, books repository.BookRepository) *HistoryService {
	return &HistoryService{history: history, books: books}
}

func (s *HistoryService) Add(ctx context.Context, in AddHistoryInput) (*models.BookHistoryEntry, error) {
	if _, err := s.books.GetByID(ctx, in.BookID); err != nil {
		return nil, err
	}
	for field, value := range map[string]string{"city": in.City, "reading_duration": in.ReadingDuration} {
		if err := validation.MaxLength(field, value, maxHistoryFieldLen); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}
	if err := validation.MaxLength("notes", in.Notes, maxNotesLen); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	entry := &models.BookHistoryEntry{
		BookID:          in.BookID,
		UserID:          in.UserID,
		City:            in.City,
		ReadingDuration: in.ReadingDuration,
		Notes:           in.Notes,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the book's history, newest first. An unknown book has no history.
func (s *HistoryService) List(ctx context.Context, bookID uint) ([]models.BookHistoryEntry, error) {
	return s.history.ListByBook(ctx, bookID)
}

// StallService manages physical exchange points.
type StallService struct {
	stalls   repository.StallRepository
	resolver *geocoding.Resolver
}

type StallInput struct {
	Name     *string
	Location geocoding.Location
	Contact  *string
	Timings  *string
}

func NewStallService(stalls repository.StallRepository, resolver *geocoding.Resolver) *StallService {
	return &StallService{stalls: stalls, resolver: resolver}
}

func (s *StallService) List(ctx context.Context, limit, offset int) ([]models.ExchangeStall, error) {
	return s.stalls.List(ctx, limit, offset)
}

func (s *StallService) Create(ctx context.Context, userID uuid.UUID, in StallInput) (*models.ExchangeStall, error) {
	if in.Name == nil {
		return nil, models.NewValidationError("name is required")
	}
	if in.Location == nil {
		return nil, models.NewValidationError("location is required")
	}
	stall := &models.ExchangeStall{CreatedBy: userID}
	if err := s.apply(ctx, stall, in); err != nil {
		return nil, err
	}
	if err := s.stalls.Create(ctx, stall); err != nil {
		return nil, err
	}
	return stall, nil
}

func (s *StallService) Update(ctx context.Context, userID uuid.UUID, id uint, in StallInput) (*models.ExchangeStall, error) {
	stall, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, stall, in); err != nil {
		return nil, err
	}
	if err := s.stalls.Update(ctx, stall); err != nil {
		return nil, err
	}
	return stall, nil
}

func (s *StallService) Delete(ctx context.Context, userID uuid.UUID, id uint) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.stalls.Delete(ctx, id)
}

func (s *StallService) owned(ctx context.Context, userID uuid.UUID, id uint) (*models.ExchangeStall, error) {
	stall, err := s.stalls.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stall.CreatedBy != userID {
		return nil, models.NewForbiddenError("Only the creator can modify this exchange stall")
	}
	return stall, nil
}

func (s *StallService) apply(ctx context.Context, stall *models.ExchangeStall, in StallInput) error {
	if in.Name != nil {
		name, err := validation.RequiredText("name", *in.Name, maxStallFieldLen)
		if err != nil {
			return models.NewValidationError(err.Error())
		}
		stall.Name = name
	}
	if in.Contact != nil {
		if err := validation.MaxLength("contact", *in.Contact, maxStallFieldLen); err != nil {
			return models.NewValidationError(err.Error())
		}
		stall.Contact = *in.Contact
	}
	if in.Timings != nil {
		if err := validation.MaxLength("timings", *in.Timings, maxStallFieldLen); err != nil {
			return models.NewValidationError(err.Error())
		}
		stall.Timings = *in.Timings
	}
	if in.Location != nil {
		resolved := s.resolver.Resolve(ctx, in.Location)
		stall.Location = resolved.Text
		stall.Latitude = resolved.Latitude
		stall.Longitude = resolved.Longitude
	}
	return nil
}

// ForumService runs the one discussion board each book has.
type ForumService struct {
	forums repository.ForumRepository
	books  repository.BookRepository
}

func NewForumService(forums repository.ForumRepository, books repository.BookRepository) *ForumService {
	return &ForumService{forums: forums, books: books}
}

// GetForum returns the book's forum, or NotFound when none was opened yet.
func (s *ForumService) GetForum(ctx context.Context, bookID uint) (*models.Forum, error) {
	return s.forums.GetByBook(ctx, bookID)
}

// OpenForum returns the book's forum, creating it on first use.
func (s *ForumService) OpenForum(ctx context.Context, userID uuid.UUID, bookID uint) (*models.Forum, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	forum, err := s.forums.GetByBook(ctx, bookID)
	if err == nil {
		return forum, nil
	}
	if !models.HasCode(err, models.CodeNotFound) {
		return nil, err
	}

	forum = &models.Forum{BookID: book.ID, Title: fmt.Sprintf("Discussion: %s", book.Title), CreatedBy: userID}
	if err := s.forums.Create(ctx, forum); err != nil {
		if models.HasCode(err, models.CodeConflict) {
			return s.GetForum(ctx, bookID)
		}
		return nil, err
	}
	return forum, nil
}

func (s *ForumService) CreatePost(ctx context.Context, userID uuid.UUID, forumID uint, content string) (*models.ForumPost, error) {
	if _, err := s.forums.GetByID(ctx, forumID); err != nil {
		return nil, err
	}
	text, err := validation.RequiredText("content", content, maxForumPostLen)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	post := &models.ForumPost{ForumID: forumID, UserID: userID, Content: text}
	if err := s.forums.CreatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *ForumService) ListPosts(ctx context.Context, forumID uint, limit, offset int) ([]models.ForumPost, error) {
	if _, err := s.forums.GetByID(ctx, forumID); err != nil {
		return nil, err
	}
	return s.forums.ListPosts(ctx, forumID, limit, offset)
}
