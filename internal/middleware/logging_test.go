package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_AddsRequestScopedIDs(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "production", "debug")
	profile := uuid.New()

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	ctx = context.WithValue(ctx, UserIDKey, profile)
	log.DebugContext(ctx, "exchange accepted")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "exchange accepted", line["msg"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, profile.String(), line["profile_id"])
	assert.Equal(t, "bookswap", line["service"])
	assert.NotContains(t, line, "trace_id")
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(&buf, "development", "warn")
	log.Info("hidden")
	assert.Empty(t, buf.String())

	log = NewLogger(&buf, "development", "nonsense")
	log.Info("shown")
	assert.Contains(t, buf.String(), "msg=shown")
}
