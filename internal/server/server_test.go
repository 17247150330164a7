package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookswap/internal/bootstrap"
	"bookswap/internal/config"
	"bookswap/internal/models"
	"bookswap/internal/testutil"
	"bookswap/internal/valuation"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-secret"

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	rdb *redis.Client
	mr  *miniredis.Miniredis
}

// newTestEnv wires a full server against in-memory sqlite and miniredis.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := testutil.NewTestDB(t)
	env := &testEnv{db: db, rdb: rdb, mr: mr}
	env.srv, env.app = buildServer(t, db, rdb)
	return env
}

func buildServer(t *testing.T, db *gorm.DB, rdb *redis.Client) (*Server, *fiber.App) {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:      testJWTSecret,
		AllowedOrigins: "http://localhost:5173",
		FrontendURL:    "http://localhost:5173",
	}
	srv, err := NewServerWithDeps(cfg, db, rdb, &bootstrap.Integrations{
		Objects: testutil.NewMemoryStore(),
		Valuer:  valuation.FixedValuer(valuation.MinPoints),
	})
	require.NoError(t, err)

	app := srv.NewApp()
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return srv, app
}

func signToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

// do sends a JSON request and returns the response. An empty token sends no
// Authorization header.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestNewServerWithDeps_RequiresIntegrations(t *testing.T) {
	db := testutil.NewTestDB(t)
	cfg := &config.Config{JWTSecret: testJWTSecret}

	_, err := NewServerWithDeps(cfg, db, nil, nil)
	assert.Error(t, err)

	_, err = NewServerWithDeps(cfg, db, nil, &bootstrap.Integrations{Objects: testutil.NewMemoryStore()})
	assert.Error(t, err)
}

func TestLivenessCheck(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "up", body["status"])
}

func TestReadinessCheck_Healthy(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestReadinessCheck_DegradedWithoutRedis(t *testing.T) {
	db := testutil.NewTestDB(t)
	_, app := buildServer(t, db, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil), -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestProtectedRoutes_RequireBearerToken(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing header", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/profile/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decode[models.ErrorResponse](t, resp)
		assert.Equal(t, models.CodeUnauthorized, body.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": uuid.NewString()})
		signed, err := token.SignedString([]byte("other-secret"))
		require.NoError(t, err)

		resp := env.do(t, http.MethodGet, "/api/profile/me", nil, signed)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"})
		signed, err := token.SignedString([]byte(testJWTSecret))
		require.NoError(t, err)

		resp := env.do(t, http.MethodGet, "/api/profile/me", nil, signed)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestPublicRoutes_NoAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/payments/packages", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	packages := decode[[]models.PointPackage](t, resp)
	assert.NotEmpty(t, packages)

	resp = env.do(t, http.MethodGet, "/api/stalls", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSetupMiddleware_PreflightCarriesCORSHeaders(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestGetFeatureFlags(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateProfile(t, env.db, "flag_reader", 0, 100)

	resp := env.do(t, http.MethodGet, "/api/feature-flags", nil, signToken(t, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Flags []FeatureFlagState `json:"flags"`
	}](t, resp)

	names := make([]string, 0, len(body.Flags))
	for _, f := range body.Flags {
		names = append(names, f.Name)
		assert.Equal(t, f.Name != "manual_points", f.Enabled, "default state of %s", f.Name)
		assert.Empty(t, f.Rule)
	}
	assert.Equal(t, []string{"ai_valuation", "manual_points", "nearby_search", "payments"}, names)
}
