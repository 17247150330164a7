package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"bookswap/internal/cache"
	"bookswap/internal/geocoding"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/observability"
	"bookswap/internal/repository"
	"bookswap/internal/valuation"
	"bookswap/internal/validation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DefaultNearbyRadiusKm is used when a nearby search names no radius.
const DefaultNearbyRadiusKm = 20.0

type BookService struct {
	db       *gorm.DB
	books    repository.BookRepository
	profiles repository.ProfileRepository
	ledger   *PointLedger
	valuer   valuation.Valuer
	images   *ImageService
	cache    *cache.Store
	now      func() time.Time
}

type CreateBookInput struct {
	OwnerID     uuid.UUID
	Title       string
	Author      string
	Description string
	Condition   string
}

type UpdateBookInput struct {
	UserID      uuid.UUID
	BookID      uint
	Title       *string
	Author      *string
	Description *string
	Condition   *string
	IsAvailable *bool
}

type ListBooksInput struct {
	ViewerID uuid.UUID
	Search   string
	MyBooks  bool
	Nearby   bool
	RadiusKm float64
	Limit    int
	Offset   int
}

func NewBookService(
	db *gorm.DB,
	books repository.BookRepository,
	profiles repository.ProfileRepository,
	ledger *PointLedger,
	valuer valuation.Valuer,
	images *ImageService,
	store *cache.Store,
) *BookService {
	return &BookService{
		db:       db,
		books:    books,
		profiles: profiles,
		ledger:   ledger,
		valuer:   valuer,
		images:   images,
		cache:    store,
		now:      time.Now,
	}
}

// CreateBook values the listing, stores it with the owner's location and
// credits the valuation to the owner in the same transaction.
func (s *BookService) CreateBook(ctx context.Context, in CreateBookInput) (book *models.Book, err error) {
	ctx, span := observability.StartSpan(ctx, "book", "create", attribute.String("owner.id", in.OwnerID.String()))
	defer func() { observability.EndSpan(span, err) }()

	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.Description = strings.TrimSpace(in.Description)
	in.Condition = strings.ToLower(strings.TrimSpace(in.Condition))
	if err := validation.ValidateBook(validation.BookInput{
		Title: in.Title, Author: in.Author, Description: in.Description, Condition: in.Condition,
	}); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	owner, err := s.profiles.GetByID(ctx, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(owner.Location) == "" {
		return nil, models.NewValidationError("Please add your location in the profile section first")
	}

	qr, err := bookQRCode(in.Title, in.Author, in.Description, owner.ID, s.now())
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	points := s.valuer.Value(ctx, valuation.BookDetails{
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Condition:   models.BookCondition(in.Condition),
	})

	book = &models.Book{
		OwnerID:     owner.ID,
		Title:       in.Title,
		Author:      in.Author,
		Description: in.Description,
		Condition:   models.BookCondition(in.Condition),
		Location:    owner.Location,
		Latitude:    owner.Latitude,
		Longitude:   owner.Longitude,
		Points:      points,
		IsAvailable: true,
		QRCode:      qr,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.books.WithTx(tx).Create(ctx, book); err != nil {
			return err
		}
		_, err := s.ledger.WithTx(tx).AddPoints(ctx, owner.ID, points)
		return err
	})
	if err != nil {
		return nil, asAppError(err)
	}
	s.cache.InvalidateProfile(ctx, owner.ID)

	middleware.Logger.InfoContext(ctx, "book listed", "book_id", book.ID, "owner_id", owner.ID, "points", points)
	return s.books.GetByID(ctx, book.ID)
}

// GetBook reads through the book cache.
func (s *BookService) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var cached models.Book
	if s.cache.GetJSON(ctx, cache.BookKey(id), &cached) {
		return &cached, nil
	}
	book, err := s.books.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetJSON(ctx, cache.BookKey(id), book, cache.BookTTL)
	return book, nil
}

// ListBooks browses listings. Nearby search needs the viewer's coordinates and
// yields nothing without them.
func (s *BookService) ListBooks(ctx context.Context, in ListBooksInput) ([]models.Book, error) {
	filter := repository.BookFilter{
		Search: in.Search,
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if in.MyBooks {
		filter.OwnerID = &in.ViewerID
	}
	if !in.Nearby {
		return s.books.List(ctx, filter)
	}

	viewer, err := s.profiles.GetByID(ctx, in.ViewerID)
	if err != nil {
		return nil, err
	}
	if !viewer.HasCoordinates() {
		return []models.Book{}, nil
	}
	radius := in.RadiusKm
	if radius <= 0 {
		radius = DefaultNearbyRadiusKm
	}
	lat, lon := *viewer.Latitude, *viewer.Longitude
	b := geocoding.BoundsAround(lat, lon, radius)
	filter.Bounds = &repository.BoundingBox{MinLat: b.MinLat, MaxLat: b.MaxLat, MinLon: b.MinLon, MaxLon: b.MaxLon}

	candidates, err := s.books.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	nearby := make([]models.Book, 0, len(candidates))
	for _, book := range candidates {
		if book.Latitude == nil || book.Longitude == nil {
			continue
		}
		d := geocoding.DistanceKm(lat, lon, *book.Latitude, *book.Longitude)
		if d > radius {
			continue
		}
		book.DistanceKm = &d
		nearby = append(nearby, book)
	}
	sort.SliceStable(nearby, func(i, j int) bool { return *nearby[i].DistanceKm < *nearby[j].DistanceKm })
	return nearby, nil
}

func (s *BookService) ownedBook(ctx context.Context, userID uuid.UUID, bookID uint) (*models.Book, error) {
	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID != userID {
		return nil, models.NewForbiddenError("Only the owner can modify this book")
	}
	return book, nil
}

// UpdateBook edits the owner's listing. Changing a descriptive field
// regenerates the QR payload.
func (s *BookService) UpdateBook(ctx context.Context, in UpdateBookInput) (*models.Book, error) {
	book, err := s.ownedBook(ctx, in.UserID, in.BookID)
	if err != nil {
		return nil, err
	}

	trimmed := func(p *string) string {
		if p == nil {
			return ""
		}
		return strings.TrimSpace(*p)
	}
	check := validation.BookInput{
		Title:       trimmed(in.Title),
		Author:      trimmed(in.Author),
		Description: trimmed(in.Description),
		Condition:   strings.ToLower(trimmed(in.Condition)),
	}
	if err := validation.ValidateBookFields(check); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	fields := map[string]any{}
	title, author, description := book.Title, book.Author, book.Description
	if in.Title != nil {
		if check.Title == "" {
			return nil, models.NewValidationError("title cannot be empty")
		}
		title = check.Title
		fields["title"] = title
	}
	if in.Author != nil {
		if check.Author == "" {
			return nil, models.NewValidationError("author cannot be empty")
		}
		author = check.Author
		fields["author"] = author
	}
	if in.Description != nil {
		description = check.Description
		fields["description"] = description
	}
	if in.Condition != nil && check.Condition != "" {
		fields["condition"] = check.Condition
	}
	if in.IsAvailable != nil {
		fields["is_available"] = *in.IsAvailable
	}
	if len(fields) == 0 {
		return book, nil
	}

	if in.Title != nil || in.Author != nil || in.Description != nil || in.Condition != nil {
		qr, err := bookQRCode(title, author, description, book.OwnerID, book.CreatedAt)
		if err != nil {
			middleware.Logger.WarnContext(ctx, "failed to regenerate QR code", "book_id", book.ID, "error", err)
		} else {
			fields["qr_code"] = qr
		}
	}

	if err := s.books.UpdateFields(ctx, book.ID, fields); err != nil {
		return nil, err
	}
	s.cache.InvalidateBook(ctx, book.ID)
	return s.books.GetByID(ctx, book.ID)
}

// DeleteBook removes the listing and its dependents and takes its valuation
// back from the owner, floored at zero. Stored images are removed after commit.
func (s *BookService) DeleteBook(ctx context.Context, userID uuid.UUID, bookID uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "book", "delete", attribute.Int("book.id", int(bookID)))
	defer func() { observability.EndSpan(span, err) }()

	var removed []models.BookImage
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		books := s.books.WithTx(tx)
		book, err := books.GetByIDForUpdate(ctx, bookID)
		if err != nil {
			return err
		}
		if book.OwnerID != userID {
			return models.NewForbiddenError("Only the owner can delete this book")
		}
		removed, err = books.DeleteWithDependents(ctx, book.ID)
		if err != nil {
			return err
		}
		if book.Points > 0 {
			if _, err := s.ledger.WithTx(tx).AddPoints(ctx, book.OwnerID, -book.Points); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return asAppError(err)
	}

	s.cache.InvalidateBook(ctx, bookID)
	s.cache.InvalidateProfile(ctx, userID)
	s.images.Remove(ctx, imageKeys(removed)...)
	return nil
}

// AddImage stores a cover picture for the owner's book. With replace set the
// previous pictures are dropped.
func (s *BookService) AddImage(ctx context.Context, userID uuid.UUID, bookID uint, upload UploadImageInput, replace bool) (*models.Book, error) {
	book, err := s.ownedBook(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	stored, err := s.images.Store(ctx, ImageKindCover, upload)
	if err != nil {
		return nil, err
	}

	image := models.BookImage{BookID: book.ID, URL: stored.URL, StorageKey: stored.Key}
	if replace {
		old, err := s.books.ReplaceImages(ctx, book.ID, []models.BookImage{image})
		if err != nil {
			s.images.Remove(ctx, stored.Key)
			return nil, err
		}
		s.images.Remove(ctx, imageKeys(old)...)
	} else if err := s.books.AddImage(ctx, &image); err != nil {
		s.images.Remove(ctx, stored.Key)
		return nil, err
	}

	s.cache.InvalidateBook(ctx, book.ID)
	return s.books.GetByID(ctx, book.ID)
}

func imageKeys(images []models.BookImage) []string {
	keys := make([]string, 0, len(images))
	for _, img := range images {
		if img.StorageKey != "" {
			keys = append(keys, img.StorageKey)
		}
	}
	return keys
}
