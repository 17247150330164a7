package server

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookswap/internal/models"
	"bookswap/internal/testutil"
	"bookswap/internal/valuation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBook(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "lister", 5, 100)
	token := signToken(t, owner.ID)

	resp := env.do(t, http.MethodPost, "/api/books", CreateBookRequest{
		Title: "The Hobbit", Author: "Tolkien", Condition: "Used",
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	book := decode[models.Book](t, resp)
	assert.Equal(t, valuation.MinPoints, book.Points)
	assert.Equal(t, models.BookConditionUsed, book.Condition)
	assert.Equal(t, "Pune", book.Location)
	assert.NotEmpty(t, book.QRCode)

	var stored models.Profile
	require.NoError(t, env.db.First(&stored, "id = ?", owner.ID).Error)
	assert.Equal(t, 5+valuation.MinPoints, stored.Points)

	t.Run("same title and author twice", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/books", CreateBookRequest{
			Title: "The Hobbit", Author: "Tolkien", Condition: "used",
		}, token)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("bad condition", func(t *testing.T) {
		resp := env.do(t, http.MethodPost, "/api/books", CreateBookRequest{
			Title: "Dracula", Author: "Stoker", Condition: "battered",
		}, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestCreateBook_RequiresOwnerLocation(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "nomad", 0, 100)
	require.NoError(t, env.db.Model(owner).UpdateColumn("location", "").Error)

	resp := env.do(t, http.MethodPost, "/api/books", CreateBookRequest{
		Title: "On the Road", Author: "Kerouac", Condition: "new",
	}, signToken(t, owner.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetBooks(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "shelf", 0, 100)
	viewer := testutil.CreateProfile(t, env.db, "browser", 0, 100)
	testutil.CreateBook(t, env.db, owner, "Rebecca", 20)
	testutil.CreateBook(t, env.db, owner, "Kindred", 20)
	testutil.CreateBook(t, env.db, viewer, "Solaris", 20)

	resp := env.do(t, http.MethodGet, "/api/books", nil, signToken(t, viewer.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Book](t, resp), 3)

	resp = env.do(t, http.MethodGet, "/api/books?my_books=true", nil, signToken(t, viewer.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	mine := decode[[]models.Book](t, resp)
	require.Len(t, mine, 1)
	assert.Equal(t, "Solaris", mine[0].Title)

	resp = env.do(t, http.MethodGet, "/api/books?search=kind", nil, signToken(t, viewer.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	found := decode[[]models.Book](t, resp)
	require.Len(t, found, 1)
	assert.Equal(t, "Kindred", found[0].Title)
}

func TestUpdateBook_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "owner", 0, 100)
	other := testutil.CreateProfile(t, env.db, "other", 0, 100)
	book := testutil.CreateBook(t, env.db, owner, "Frankenstein", 20)
	path := fmt.Sprintf("/api/books/%d", book.ID)
	title := "Frankenstein; or, The Modern Prometheus"

	resp := env.do(t, http.MethodPut, path, UpdateBookRequest{Title: &title}, signToken(t, other.ID))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, path, UpdateBookRequest{Title: &title}, signToken(t, owner.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, title, decode[models.Book](t, resp).Title)
}

func TestDeleteBook_DeductsValueWithFloor(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "owner", 15, 100)
	book := testutil.CreateBook(t, env.db, owner, "Moby Dick", 40)

	resp := env.do(t, http.MethodDelete, fmt.Sprintf("/api/books/%d", book.ID), nil, signToken(t, owner.ID))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var stored models.Profile
	require.NoError(t, env.db.First(&stored, "id = ?", owner.ID).Error)
	assert.Equal(t, 0, stored.Points)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/books/%d", book.ID), nil, signToken(t, owner.ID))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUploadBookImages(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "owner", 0, 100)
	book := testutil.CreateBook(t, env.db, owner, "Nostromo", 20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for i := 0; i < 2; i++ {
		part, err := mw.CreateFormFile("images", fmt.Sprintf("cover-%d.png", i))
		require.NoError(t, err)
		_, err = part.Write(testutil.TinyPNG(t, 16, 24))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/books/%d/images", book.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+signToken(t, owner.ID))
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, decode[models.Book](t, resp).Images, 2)
}

func TestUploadBookImages_RequiresMultipart(t *testing.T) {
	env := newTestEnv(t)
	owner := testutil.CreateProfile(t, env.db, "owner", 0, 100)
	book := testutil.CreateBook(t, env.db, owner, "Nostromo", 20)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/books/%d/images", book.ID),
		map[string]string{"image": "nope"}, signToken(t, owner.ID))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
