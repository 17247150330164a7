package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bookswap/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_PutAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStore(dir, "http://localhost:8375/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "books/a.webp", []byte("img"), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8375/uploads/books/a.webp", url)

	data, err := os.ReadFile(filepath.Join(dir, "books", "a.webp"))
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))

	require.NoError(t, store.Delete(ctx, "books/a.webp"))
	require.NoError(t, store.Delete(ctx, "books/a.webp"), "deleting a missing object is fine")

	_, err = store.Put(ctx, "../escape.webp", []byte("x"), "image/webp")
	assert.Error(t, err)
}

func TestNewKey(t *testing.T) {
	a, b := NewKey("avatars", ".webp"), NewKey("avatars", ".webp")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "avatars/"))
	assert.True(t, strings.HasSuffix(a, ".webp"))
}

func TestNew_SelectsDriver(t *testing.T) {
	store, err := New(context.Background(), &config.Config{StorageDriver: "local", StorageLocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)

	_, err = New(context.Background(), &config.Config{StorageDriver: "ftp"})
	assert.Error(t, err)

	_, err = New(context.Background(), &config.Config{StorageDriver: "s3"})
	assert.Error(t, err, "s3 needs a bucket and credentials")
}

func TestS3Store_PutAndDeleteUsePathStyle(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		if r.Method == http.MethodPut {
			b, _ := io.ReadAll(r.Body)
			body = string(b)
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	store, err := NewS3Store(context.Background(), S3Config{
		Endpoint:        srv.URL,
		Region:          "us-east-1",
		Bucket:          "covers",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "books/1.webp", []byte("webp-bytes"), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/covers/books/1.webp", url)
	require.NoError(t, store.Delete(context.Background(), "books/1.webp"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"PUT /covers/books/1.webp", "DELETE /covers/books/1.webp"}, calls)
	assert.Contains(t, body, "webp-bytes")
}
