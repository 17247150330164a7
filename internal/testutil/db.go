// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"bookswap/internal/database"
	"bookswap/internal/models"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewTestDB opens a private in-memory SQLite database with the full schema and
// partial indexes applied. A single connection keeps the memory database alive
// and serialises transactions the way row locks would on postgres.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:bookswap_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	if err := database.EnsureIndexes(context.Background(), db); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	return db
}

// CreateProfile inserts a profile with the given balances.
func CreateProfile(t testing.TB, db *gorm.DB, username string, points, reputation int) *models.Profile {
	t.Helper()
	p := &models.Profile{
		ID:         uuid.New(),
		Username:   username,
		Location:   "Pune",
		Points:     points,
		Reputation: reputation,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	// Zero values are skipped by GORM defaults on insert.
	if reputation == 0 {
		if err := db.Model(p).UpdateColumn("reputation", 0).Error; err != nil {
			t.Fatalf("zero reputation: %v", err)
		}
	}
	return p
}

// CreateBook inserts an available book owned by owner.
func CreateBook(t testing.TB, db *gorm.DB, owner *models.Profile, title string, points int) *models.Book {
	t.Helper()
	b := &models.Book{
		OwnerID:     owner.ID,
		Title:       title,
		Author:      "Author of " + title,
		Condition:   models.BookConditionUsed,
		Location:    owner.Location,
		Latitude:    owner.Latitude,
		Longitude:   owner.Longitude,
		Points:      points,
		IsAvailable: true,
	}
	if err := db.Create(b).Error; err != nil {
		t.Fatalf("create book: %v", err)
	}
	return b
}

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
