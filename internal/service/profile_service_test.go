package service

import (
	"context"
	"errors"
	"testing"

	"bookswap/internal/geocoding"
	"bookswap/internal/models"
	"bookswap/internal/repository"
	"bookswap/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profileFixture struct {
	*engine
	store    *testutil.MemoryStore
	geocoder *testutil.StubGeocoder
	svc      *ProfileService
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	e := newEngine(t)
	objects := testutil.NewMemoryStore()
	geo := &testutil.StubGeocoder{Places: map[string]geocoding.Match{
		"pune":   {Lat: 18.5204, Lon: 73.8567, DisplayName: "Pune, Maharashtra"},
		"mumbai": {Lat: 19.0760, Lon: 72.8777, DisplayName: "Mumbai, Maharashtra"},
	}}
	return &profileFixture{
		engine:   e,
		store:    objects,
		geocoder: geo,
		svc: NewProfileService(e.db, e.profiles, e.books, geocoding.NewResolver(geo),
			NewImageService(objects, nil), nil),
	}
}

func TestProfileService_UpsertCreatesWithGeocodedLocation(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	id := uuid.New()

	p, err := f.svc.UpsertProfile(ctx, UpsertProfileInput{
		UserID:   id,
		Username: "reader_one",
		Location: geocoding.FreeformAddress{Text: "Pune"},
	})
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, 0, p.Points)
	assert.Equal(t, models.DefaultReputation, p.Reputation)
	assert.Equal(t, "Pune", p.Location)
	require.True(t, p.HasCoordinates())
	assert.InDelta(t, 18.5204, *p.Latitude, 1e-9)

	_, err = f.svc.UpsertProfile(ctx, UpsertProfileInput{UserID: uuid.New(), Username: "reader_one"})
	assert.True(t, models.HasCode(err, models.CodeConflict))

	_, err = f.svc.UpsertProfile(ctx, UpsertProfileInput{UserID: uuid.New(), Username: "x"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestProfileService_LocationChangeCascadesToBooks(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 20)

	p, err := f.svc.UpsertProfile(ctx, UpsertProfileInput{
		UserID:   owner.ID,
		Username: "owner_renamed",
		Location: geocoding.FreeformAddress{Text: "Mumbai"},
	})
	require.NoError(t, err)
	assert.Equal(t, "owner_renamed", p.Username)
	assert.Equal(t, "Mumbai", p.Location)

	moved, err := f.books.GetByID(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", moved.Location)
	require.NotNil(t, moved.Latitude)
	assert.InDelta(t, 19.0760, *moved.Latitude, 1e-9)
}

func TestProfileService_UpdateWithCoordinatesAndFailedLookup(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)

	p, err := f.svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:   owner.ID,
		Location: geocoding.Coordinates{Lat: 12.9716, Lon: 77.5946},
	})
	require.NoError(t, err)
	assert.Equal(t, "12.971600, 77.594600", p.Location)
	assert.True(t, p.HasCoordinates())

	f.geocoder.Err = errors.New("nominatim down")
	p, err = f.svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID:   owner.ID,
		Location: geocoding.FreeformAddress{Text: "Somewhere"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Somewhere", p.Location)
	assert.False(t, p.HasCoordinates())
}

func TestProfileService_UploadAvatarReplacesPrevious(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	upload := UploadImageInput{Filename: "me.png", Content: testutil.TinyPNG(t, 64, 64)}

	first, err := f.svc.UploadAvatar(ctx, owner.ID, upload)
	require.NoError(t, err)
	assert.NotEmpty(t, first.ImageURL)
	firstKey := first.ImageKey
	require.True(t, f.store.Has(firstKey))

	second, err := f.svc.UploadAvatar(ctx, owner.ID, upload)
	require.NoError(t, err)
	assert.NotEqual(t, firstKey, second.ImageKey)
	assert.False(t, f.store.Has(firstKey))
	assert.True(t, f.store.Has(second.ImageKey))
}

func TestProfileService_DeleteProfileRemovesStoredImages(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	owner := testutil.CreateProfile(t, f.db, "owner", 0, 100)
	book := testutil.CreateBook(t, f.db, owner, "Emma", 20)

	avatar, err := f.svc.UploadAvatar(ctx, owner.ID, UploadImageInput{Content: testutil.TinyPNG(t, 32, 32)})
	require.NoError(t, err)
	f.store.Objects["books/emma.webp"] = []byte("img")
	require.NoError(t, f.books.AddImage(ctx, &models.BookImage{BookID: book.ID, URL: "u", StorageKey: "books/emma.webp"}))

	require.NoError(t, f.svc.DeleteProfile(ctx, owner.ID))
	assert.False(t, f.store.Has(avatar.ImageKey))
	assert.False(t, f.store.Has("books/emma.webp"))

	_, err = f.svc.GetProfile(ctx, owner.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	books, err := f.books.List(ctx, repository.BookFilter{})
	require.NoError(t, err)
	assert.Empty(t, books)
}

func TestProfileService_CheckReputation(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	p := testutil.CreateProfile(t, f.db, "grumpy", 0, 45)

	d, err := f.svc.CheckReputation(ctx, p.ID, ActionChat)
	require.NoError(t, err)
	assert.Equal(t, GateDecision{Allowed: false, Required: 50, Current: 45, Deficit: 5}, d)

	d, err = f.svc.CheckReputation(ctx, p.ID, ActionForum)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	_, err = f.svc.CheckReputation(ctx, uuid.New(), ActionChat)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestProfileService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newProfileFixture(t)
	owner := testutil.CreateProfile(t, f.db, "owner", 70, 100)
	testutil.CreateBook(t, f.db, owner, "Emma", 20)
	testutil.CreateBook(t, f.db, owner, "Persuasion", 20)

	stats, err := f.svc.GetStats(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalBooks)
	assert.Equal(t, 70, stats.Points)
}
