package service

import (
	"context"
	"strings"
	"testing"

	"bookswap/internal/cache"
	"bookswap/internal/geocoding"
	"bookswap/internal/models"
	"bookswap/internal/testutil"
	"bookswap/internal/valuation"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type bookFixture struct {
	*engine
	store *testutil.MemoryStore
	svc   *BookService
}

func newBookFixture(t *testing.T, valuer valuation.Valuer, store *cache.Store) *bookFixture {
	t.Helper()
	e := newEngine(t)
	objects := testutil.NewMemoryStore()
	images := NewImageService(objects, nil)
	return &bookFixture{
		engine: e,
		store:  objects,
		svc:    NewBookService(e.db, e.books, e.profiles, e.ledger, valuer, images, store),
	}
}

func placeAt(t *testing.T, db *gorm.DB, p *models.Profile, lat, lon float64) {
	t.Helper()
	p.Latitude, p.Longitude = testutil.Float(lat), testutil.Float(lon)
	require.NoError(t, db.Model(p).Updates(map[string]any{"latitude": lat, "longitude": lon}).Error)
}

func TestBookService_CreateBookCreditsValuation(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(40), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 5, 100)
	placeAt(t, f.db, owner, 18.52, 73.85)

	book, err := f.svc.CreateBook(ctx, CreateBookInput{
		OwnerID:     owner.ID,
		Title:       "  The Hobbit ",
		Author:      "Tolkien",
		Description: "First edition reprint",
		Condition:   "USED",
	})
	require.NoError(t, err)

	assert.Equal(t, "The Hobbit", book.Title)
	assert.Equal(t, models.BookConditionUsed, book.Condition)
	assert.Equal(t, 40, book.Points)
	assert.Equal(t, "Pune", book.Location)
	require.NotNil(t, book.Latitude)
	assert.InDelta(t, 18.52, *book.Latitude, 1e-9)
	assert.True(t, strings.HasPrefix(book.QRCode, "data:image/png;base64,"))
	assert.True(t, book.IsAvailable)

	points, _ := f.balance(t, owner.ID)
	assert.Equal(t, 45, points)
}

func TestBookService_CreateBookValidation(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(10), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)

	_, err := f.svc.CreateBook(ctx, CreateBookInput{OwnerID: owner.ID, Title: "", Author: "A", Condition: "new"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = f.svc.CreateBook(ctx, CreateBookInput{OwnerID: owner.ID, Title: "T", Author: "A", Condition: "shiny"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	require.NoError(t, f.db.Model(owner).Update("location", "").Error)
	_, err = f.svc.CreateBook(ctx, CreateBookInput{OwnerID: owner.ID, Title: "T", Author: "A", Condition: "new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "location")
}

func TestBookService_DuplicateListingDoesNotCredit(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(30), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)

	in := CreateBookInput{OwnerID: owner.ID, Title: "Dune", Author: "Herbert", Condition: "new"}
	_, err := f.svc.CreateBook(ctx, in)
	require.NoError(t, err)

	_, err = f.svc.CreateBook(ctx, in)
	assert.True(t, models.HasCode(err, models.CodeConflict))

	points, _ := f.balance(t, owner.ID)
	assert.Equal(t, 30, points)
}

func TestBookService_DeleteBookFloorsPointsAndRemovesImages(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(10), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 10, 100)
	other := testutil.CreateProfile(t, f.db, "other", 10, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 25)

	f.store.Objects["books/emma.webp"] = []byte("img")
	require.NoError(t, f.books.AddImage(ctx, &models.BookImage{BookID: book.ID, URL: "https://cdn.test/books/emma.webp", StorageKey: "books/emma.webp"}))

	err := f.svc.DeleteBook(ctx, other.ID, book.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	require.NoError(t, f.svc.DeleteBook(ctx, owner.ID, book.ID))

	points, _ := f.balance(t, owner.ID)
	assert.Equal(t, 0, points)
	assert.False(t, f.store.Has("books/emma.webp"))

	_, err = f.books.GetByID(ctx, book.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	err = f.svc.DeleteBook(ctx, owner.ID, book.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestBookService_UpdateBook(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(10), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	other := testutil.CreateProfile(t, f.db, "other", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 25)

	title := "Emma (Annotated)"
	_, err := f.svc.UpdateBook(ctx, UpdateBookInput{UserID: other.ID, BookID: book.ID, Title: &title})
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	updated, err := f.svc.UpdateBook(ctx, UpdateBookInput{UserID: owner.ID, BookID: book.ID, Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.True(t, strings.HasPrefix(updated.QRCode, "data:image/png;base64,"))
	assert.Equal(t, 25, updated.Points, "valuation is fixed at listing time")

	qr := updated.QRCode
	unavailable := false
	updated, err = f.svc.UpdateBook(ctx, UpdateBookInput{UserID: owner.ID, BookID: book.ID, IsAvailable: &unavailable})
	require.NoError(t, err)
	assert.False(t, updated.IsAvailable)
	assert.Equal(t, qr, updated.QRCode)

	empty := " "
	_, err = f.svc.UpdateBook(ctx, UpdateBookInput{UserID: owner.ID, BookID: book.ID, Author: &empty})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestBookService_ListBooksNearby(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(10), nil)

	viewer := testutil.CreateProfile(t, f.db, "viewer", 0, 100)
	placeAt(t, f.db, viewer, 18.5204, 73.8567)
	neighbour := testutil.CreateProfile(t, f.db, "neighbour", 0, 100)
	placeAt(t, f.db, neighbour, 18.5300, 73.8700)
	faraway := testutil.CreateProfile(t, f.db, "faraway", 0, 100)
	placeAt(t, f.db, faraway, 19.0760, 72.8777)
	nowhere := testutil.CreateProfile(t, f.db, "nowhere", 0, 100)

	near := testutil.CreateBook(t, f.db, neighbour, "Near", 10)
	testutil.CreateBook(t, f.db, faraway, "Far", 10)
	testutil.CreateBook(t, f.db, nowhere, "Unplaced", 10)

	books, err := f.svc.ListBooks(ctx, ListBooksInput{ViewerID: viewer.ID, Nearby: true})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, near.ID, books[0].ID)
	require.NotNil(t, books[0].DistanceKm)
	assert.Less(t, *books[0].DistanceKm, 3.0)

	books, err = f.svc.ListBooks(ctx, ListBooksInput{ViewerID: viewer.ID, Nearby: true, RadiusKm: 500})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, err = f.svc.ListBooks(ctx, ListBooksInput{ViewerID: nowhere.ID, Nearby: true})
	require.NoError(t, err)
	assert.Empty(t, books)

	books, err = f.svc.ListBooks(ctx, ListBooksInput{ViewerID: neighbour.ID, MyBooks: true})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, near.ID, books[0].ID)

	books, err = f.svc.ListBooks(ctx, ListBooksInput{ViewerID: viewer.ID, Search: "far"})
	require.NoError(t, err)
	assert.Len(t, books, 1)
}

func TestBookService_AddImageReplacesOldObjects(t *testing.T) {
	ctx := context.Background()
	f := newBookFixture(t, valuation.FixedValuer(10), nil)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 25)
	upload := UploadImageInput{Filename: "cover.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 40, 60)}

	withFirst, err := f.svc.AddImage(ctx, owner.ID, book.ID, upload, false)
	require.NoError(t, err)
	require.Len(t, withFirst.Images, 1)
	require.Equal(t, 1, f.store.Len())

	withSecond, err := f.svc.AddImage(ctx, owner.ID, book.ID, upload, true)
	require.NoError(t, err)
	require.Len(t, withSecond.Images, 1)
	assert.NotEqual(t, withFirst.Images[0].URL, withSecond.Images[0].URL)
	assert.Equal(t, 1, f.store.Len(), "replaced object is deleted")

	_, err = f.svc.AddImage(ctx, uuid.New(), book.ID, upload, false)
	assert.True(t, models.HasCode(err, models.CodeForbidden))
}

func TestBookService_GetBookUsesCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	f := newBookFixture(t, valuation.FixedValuer(10), cache.NewStore(rdb))
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 25)

	got, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Emma", got.Title)
	assert.True(t, mr.Exists(cache.BookKey(book.ID)))

	cached, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, got.Title, cached.Title)
	require.NotNil(t, cached.Owner)
	assert.Equal(t, "owner", cached.Owner.Username)

	title := "Emma II"
	_, err = f.svc.UpdateBook(ctx, UpdateBookInput{UserID: owner.ID, BookID: book.ID, Title: &title})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.BookKey(book.ID)))
}

func TestBookService_CachedBookFollowsOwnerProfile(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := cache.NewStore(rdb)
	f := newBookFixture(t, valuation.FixedValuer(10), store)
	geo := &testutil.StubGeocoder{Places: map[string]geocoding.Match{
		"mumbai": {Lat: 19.0760, Lon: 72.8777, DisplayName: "Mumbai, Maharashtra"},
	}}
	profiles := NewProfileService(f.db, f.profiles, f.books, geocoding.NewResolver(geo),
		NewImageService(testutil.NewMemoryStore(), nil), store)

	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 25)

	_, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.BookKey(book.ID)))

	_, err = profiles.UpdateProfile(ctx, UpdateProfileInput{
		UserID:   owner.ID,
		Location: geocoding.FreeformAddress{Text: "Mumbai"},
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.BookKey(book.ID)))

	moved, err := f.svc.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", moved.Location)
	require.NotNil(t, moved.Latitude)
	assert.InDelta(t, 19.0760, *moved.Latitude, 1e-9)
	require.True(t, mr.Exists(cache.BookKey(book.ID)))

	require.NoError(t, profiles.DeleteProfile(ctx, owner.ID))
	assert.False(t, mr.Exists(cache.BookKey(book.ID)))

	_, err = f.svc.GetBook(ctx, book.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
