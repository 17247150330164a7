package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookswap/internal/middleware"

	"gorm.io/gorm"
)

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255;not null"`
	Checksum  string    `gorm:"size:64;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName pins the bookkeeping table name.
func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

// Migrator applies a fixed set of migrations and records each one with the
// checksum of its up script.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

// NewMigrator binds set to db. set must be ordered by version.
func NewMigrator(db *gorm.DB, set []Migration) *Migrator {
	return &Migrator{db: db, set: set}
}

// NewBundledMigrator is NewMigrator over the migrations compiled into the binary.
func NewBundledMigrator(db *gorm.DB) (*Migrator, error) {
	set, err := Bundled()
	if err != nil {
		return nil, err
	}
	return NewMigrator(db, set), nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	if err := m.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return fmt.Errorf("prepare schema_migrations: %w", err)
	}
	return nil
}

// Applied lists recorded migrations, oldest first.
func (m *Migrator) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	var rows []AppliedMigration
	if err := m.db.WithContext(ctx).Order("version ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list schema_migrations: %w", err)
	}
	return rows, nil
}

// Pending returns the migrations not yet recorded. It fails when the database
// knows a version this build does not, or when a recorded checksum no longer
// matches the bundled script.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	return m.reconcile(applied)
}

func (m *Migrator) reconcile(applied []AppliedMigration) ([]Migration, error) {
	known := make(map[int]Migration, len(m.set))
	for _, mig := range m.set {
		known[mig.Version] = mig
	}

	seen := make(map[int]bool, len(applied))
	var drift []string
	for _, row := range applied {
		seen[row.Version] = true
		mig, ok := known[row.Version]
		switch {
		case !ok:
			drift = append(drift, fmt.Sprintf("%06d_%s is not part of this build", row.Version, row.Name))
		case row.Checksum != mig.Checksum:
			drift = append(drift, mig.Label()+" was edited after it was applied")
		}
	}
	if len(drift) > 0 {
		return nil, fmt.Errorf("schema_migrations drift: %s", strings.Join(drift, "; "))
	}

	var pending []Migration
	for _, mig := range m.set {
		if !seen[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration, each in its own transaction, and
// returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		start := time.Now()
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(mig.Up).Error; err != nil {
				return err
			}
			return tx.Create(&AppliedMigration{Version: mig.Version, Name: mig.Name, Checksum: mig.Checksum}).Error
		})
		if err != nil {
			return i, fmt.Errorf("apply %s: %w", mig.Label(), err)
		}
		middleware.Logger.Info("migration applied",
			slog.String("migration", mig.Label()),
			slog.Duration("took", time.Since(start)))
	}
	return len(pending), nil
}

// Down reverts version, which must be the most recently applied migration.
func (m *Migrator) Down(ctx context.Context, version int) error {
	applied, err := m.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return fmt.Errorf("no migrations have been applied")
	}
	if latest := applied[len(applied)-1].Version; latest != version {
		return fmt.Errorf("can only roll back the latest migration %06d, not %06d", latest, version)
	}

	var target *Migration
	for i := range m.set {
		if m.set[i].Version == version {
			target = &m.set[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("migration %06d is not part of this build", version)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(target.Down).Error; err != nil {
			return err
		}
		return tx.Where("version = ?", version).Delete(&AppliedMigration{}).Error
	})
	if err != nil {
		return fmt.Errorf("roll back %s: %w", target.Label(), err)
	}
	middleware.Logger.Info("migration rolled back", slog.String("migration", target.Label()))
	return nil
}
