package service

import (
	"context"
	"fmt"

	"bookswap/internal/cache"
	"bookswap/internal/middleware"
	"bookswap/internal/models"
	"bookswap/internal/observability"
	"bookswap/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DefaultRequestPrice applies when neither the requester nor the listing names a price.
const DefaultRequestPrice = 10

// ExchangeService runs the request lifecycle: pending, then completed or cancelled.
type ExchangeService struct {
	db        *gorm.DB
	books     repository.BookRepository
	exchanges repository.ExchangeRepository
	profiles  repository.ProfileRepository
	ledger    *PointLedger
	notifier  Notifier
	cache     *cache.Store
}

// NewExchangeService returns a new ExchangeService.
func NewExchangeService(
	db *gorm.DB,
	books repository.BookRepository,
	exchanges repository.ExchangeRepository,
	profiles repository.ProfileRepository,
	ledger *PointLedger,
	notifier Notifier,
	store *cache.Store,
) *ExchangeService {
	return &ExchangeService{
		db:        db,
		books:     books,
		exchanges: exchanges,
		profiles:  profiles,
		ledger:    ledger,
		notifier:  notifier,
		cache:     store,
	}
}

// requestPrice picks the offered amount, then the listing price, then the default.
func requestPrice(offered, listed int) int {
	switch {
	case offered > 0:
		return offered
	case listed > 0:
		return listed
	default:
		return DefaultRequestPrice
	}
}

// CreateRequest opens a pending request by requesterID for bookID.
func (s *ExchangeService) CreateRequest(
	ctx context.Context, requesterID uuid.UUID, bookID uint, offeredPoints int,
) (exchange *models.Exchange, err error) {
	ctx, span := observability.StartSpan(ctx, "exchange", "create_request",
		attribute.Int("book.id", int(bookID)), attribute.String("requester.id", requesterID.String()))
	defer func() { observability.EndSpan(span, err) }()

	book, err := s.books.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.OwnerID == requesterID {
		return nil, models.NewSelfRequestError()
	}

	existing, err := s.exchanges.FindPending(ctx, bookID, requesterID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewDuplicateRequestError()
	}

	price := requestPrice(offeredPoints, book.Points)
	requester, err := s.profiles.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester.Points < price {
		return nil, models.NewInsufficientPointsError(requester.Points, price)
	}

	exchange = &models.Exchange{
		BookID:     book.ID,
		FromUserID: book.OwnerID,
		ToUserID:   requesterID,
		PointsUsed: price,
		Status:     models.ExchangeStatusPending,
	}
	if err := s.exchanges.Create(ctx, exchange); err != nil {
		return nil, err
	}
	observability.ExchangeTransitions.WithLabelValues(string(models.ExchangeStatusPending)).Inc()

	s.notifier.Notify(ctx, book.OwnerID,
		fmt.Sprintf("New request for \"%s\" from %s. Offered: %d pts.", book.Title, requester.Username, price),
		&book.ID, "/requests?tab=incoming")

	return s.exchanges.GetByID(ctx, exchange.ID)
}

// Respond applies the owner's decision to a pending request.
func (s *ExchangeService) Respond(
	ctx context.Context, exchangeID uint, responderID uuid.UUID, decision models.Decision,
) (result *models.Exchange, err error) {
	ctx, span := observability.StartSpan(ctx, "exchange", "respond",
		attribute.Int("exchange.id", int(exchangeID)), attribute.String("decision", string(decision)))
	defer func() { observability.EndSpan(span, err) }()

	exchange, err := s.exchanges.GetByID(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if exchange.Book == nil {
		return nil, models.NewNotFoundError("Book", exchange.BookID)
	}
	if exchange.FromUserID != responderID {
		return nil, models.NewForbiddenError("Only the book owner can respond to this request")
	}
	if exchange.Status.Terminal() {
		return nil, models.NewInvalidTransitionError(exchange.Status)
	}

	switch decision {
	case models.DecisionAccept:
		err = s.accept(ctx, exchange)
	case models.DecisionReject:
		err = s.reject(ctx, exchange)
	default:
		err = models.NewValidationError("Decision must be accept or reject")
	}
	if err != nil {
		return nil, err
	}
	return s.exchanges.GetByID(ctx, exchangeID)
}

// accept completes the request, hands the book to the requester and pays the
// owner, all in one transaction. Competing pending requests for the same book
// are cancelled with it.
func (s *ExchangeService) accept(ctx context.Context, exchange *models.Exchange) error {
	var superseded []models.Exchange

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exchanges := s.exchanges.WithTx(tx)
		books := s.books.WithTx(tx)

		locked, err := exchanges.GetByIDForUpdate(ctx, exchange.ID)
		if err != nil {
			return err
		}
		if locked.Status != models.ExchangeStatusPending {
			return models.NewInvalidTransitionError(locked.Status)
		}
		book, err := books.GetByIDForUpdate(ctx, locked.BookID)
		if err != nil {
			return err
		}
		if book.OwnerID != locked.FromUserID {
			return models.NewConflictError("This book has already changed hands")
		}

		ok, err := exchanges.TransitionFromPending(ctx, locked.ID, models.ExchangeStatusCompleted)
		if err != nil {
			return err
		}
		if !ok {
			return models.NewInvalidTransitionError(models.ExchangeStatusCompleted)
		}

		requester, err := s.profiles.WithTx(tx).GetByID(ctx, locked.ToUserID)
		if err != nil {
			return err
		}
		qr, err := bookQRCode(book.Title, book.Author, book.Description, requester.ID, book.CreatedAt)
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := books.TransferOwnership(ctx, book.ID, requester, qr); err != nil {
			return err
		}
		if err := s.ledger.WithTx(tx).Transfer(ctx, locked.ToUserID, locked.FromUserID, locked.PointsUsed); err != nil {
			return err
		}

		superseded, err = exchanges.CancelOtherPending(ctx, book.ID, locked.ID)
		return err
	})
	if err != nil {
		middleware.Logger.WarnContext(ctx, "request accept rolled back", "exchange_id", exchange.ID, "error", err)
		return asAppError(err)
	}

	observability.ExchangeTransitions.WithLabelValues(string(models.ExchangeStatusCompleted)).Inc()
	s.cache.InvalidateBook(ctx, exchange.BookID)
	s.cache.Invalidate(ctx, cache.ProfileKey(exchange.FromUserID), cache.ProfileKey(exchange.ToUserID))
	title := exchange.Book.Title
	s.notifier.Notify(ctx, exchange.ToUserID,
		fmt.Sprintf("Your request for \"%s\" was ACCEPTED!", title),
		&exchange.BookID, fmt.Sprintf("/book/%d", exchange.BookID))

	for _, other := range superseded {
		observability.ExchangeTransitions.WithLabelValues(string(models.ExchangeStatusCancelled)).Inc()
		s.notifier.Notify(ctx, other.ToUserID,
			fmt.Sprintf("Your request for \"%s\" was declined.", title),
			&exchange.BookID, "/requests?tab=outgoing")
	}
	return nil
}

func (s *ExchangeService) reject(ctx context.Context, exchange *models.Exchange) error {
	ok, err := s.exchanges.TransitionFromPending(ctx, exchange.ID, models.ExchangeStatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		current, err := s.exchanges.GetByID(ctx, exchange.ID)
		if err != nil {
			return err
		}
		return models.NewInvalidTransitionError(current.Status)
	}

	observability.ExchangeTransitions.WithLabelValues(string(models.ExchangeStatusCancelled)).Inc()
	s.notifier.Notify(ctx, exchange.ToUserID,
		fmt.Sprintf("Your request for \"%s\" was declined.", exchange.Book.Title),
		&exchange.BookID, "/requests?tab=outgoing")
	return nil
}

// ListRequests returns the caller's incoming or outgoing requests, newest first.
func (s *ExchangeService) ListRequests(
	ctx context.Context, userID uuid.UUID, direction models.RequestDirection,
) ([]models.Exchange, error) {
	if direction != models.RequestsIncoming && direction != models.RequestsOutgoing {
		return nil, models.NewValidationError("type must be incoming or outgoing")
	}
	return s.exchanges.List(ctx, userID, direction)
}
