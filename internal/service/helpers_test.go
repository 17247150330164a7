package service

import (
	"context"
	"sync"
	"testing"

	"bookswap/internal/repository"
	"bookswap/internal/testutil"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type sentNotification struct {
	UserID  uuid.UUID
	Message string
	BookID  *uint
	Link    string
}

// recordingNotifier captures notifications instead of storing them.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (r *recordingNotifier) Notify(_ context.Context, userID uuid.UUID, message string, relatedBookID *uint, actionLink string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentNotification{UserID: userID, Message: message, BookID: relatedBookID, Link: actionLink})
}

func (r *recordingNotifier) For(userID uuid.UUID) []sentNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sentNotification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type engine struct {
	db        *gorm.DB
	profiles  repository.ProfileRepository
	books     repository.BookRepository
	exchanges repository.ExchangeRepository
	ledger    *PointLedger
	exchange  *ExchangeService
	notifier  *recordingNotifier
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := testutil.NewTestDB(t)
	e := &engine{
		db:        db,
		profiles:  repository.NewProfileRepository(db),
		books:     repository.NewBookRepository(db),
		exchanges: repository.NewExchangeRepository(db),
		notifier:  &recordingNotifier{},
	}
	e.ledger = NewPointLedger(db, e.profiles, nil)
	e.exchange = NewExchangeService(db, e.books, e.exchanges, e.profiles, e.ledger, e.notifier, nil)
	return e
}

func (e *engine) balance(t *testing.T, id uuid.UUID) (points, reputation int) {
	t.Helper()
	p, err := e.profiles.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("load profile: %v", err)
	}
	return p.Points, p.Reputation
}
