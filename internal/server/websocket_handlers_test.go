package server

import (
	"net/http"
	"testing"

	"bookswap/internal/models"
	"bookswap/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueWSTicket(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateProfile(t, env.db, "listener", 0, 100)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, signToken(t, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	ticket, _ := body["ticket"].(string)
	require.NotEmpty(t, ticket)
	assert.EqualValues(t, wsTicketTTL.Seconds(), body["expires_in"])

	stored, err := env.mr.Get(wsTicketPrefix + ticket)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), stored)
	assert.Equal(t, wsTicketTTL, env.mr.TTL(wsTicketPrefix+ticket))
}

func TestIssueWSTicket_RequiresBearer(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateProfile(t, env.db, "listener", 0, 100)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, signToken(t, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, resp)["ticket"].(string)

	// A plain GET passes auth with the ticket, then fails the upgrade check.
	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
	assert.False(t, env.mr.Exists(wsTicketPrefix+ticket))

	resp = env.do(t, http.MethodGet, "/api/ws?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decode[models.ErrorResponse](t, resp)
	assert.Equal(t, "Invalid or expired WebSocket ticket", body.Error)
}

func TestWSTicket_UnknownTicket(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/ws?ticket=never-issued", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWSTicket_IgnoredOutsideWebsocketPaths(t *testing.T) {
	env := newTestEnv(t)
	user := testutil.CreateProfile(t, env.db, "listener", 0, 100)

	resp := env.do(t, http.MethodPost, "/api/ws/ticket", nil, signToken(t, user.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ticket := decode[map[string]any](t, resp)["ticket"].(string)

	resp = env.do(t, http.MethodGet, "/api/profile/me?ticket="+ticket, nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.True(t, env.mr.Exists(wsTicketPrefix+ticket))
}
