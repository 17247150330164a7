package database

import (
	"testing"

	"bookswap/internal/models"

	"github.com/stretchr/testify/require"
)

func TestPersistentModels_IncludesLedgerAndExchangeTables(t *testing.T) {
	var hasProfile, hasExchange, hasPayment bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Profile:
			hasProfile = true
		case *models.Exchange:
			hasExchange = true
		case *models.Payment:
			hasPayment = true
		}
	}
	require.True(t, hasProfile, "PersistentModels should include Profile")
	require.True(t, hasExchange, "PersistentModels should include Exchange")
	require.True(t, hasPayment, "PersistentModels should include Payment")
}
