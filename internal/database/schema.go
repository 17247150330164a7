package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"bookswap/internal/config"
	"bookswap/internal/middleware"

	"gorm.io/gorm"
)

// Values accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do under a given config.
type SchemaPlan struct {
	Mode        string
	Env         string
	SQL         bool
	AutoMigrate bool
}

// SchemaReport is the output of `migrate status`.
type SchemaReport struct {
	Plan           SchemaPlan
	Applied        []AppliedMigration
	Pending        []Migration
	MissingIndexes []string
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. Hybrid runs
// AutoMigrate only outside production; auto in production needs
// DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)), Env: cfg.Env}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch env := strings.ToLower(strings.TrimSpace(cfg.Env)); plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL = true
		plan.AutoMigrate = !productionLike(env)
	case SchemaModeAuto:
		if productionLike(env) && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("DB_SCHEMA_MODE=auto in %q requires DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.AutoMigrate = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

func productionLike(env string) bool {
	switch env {
	case "production", "prod", "staging", "stage":
		return true
	}
	return false
}

// ApplySchema brings the database up to date and then ensures the partial
// indexes exist.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		migrator, err := NewBundledMigrator(db)
		if err != nil {
			return err
		}
		if _, err := migrator.Up(ctx); err != nil {
			return err
		}
	}

	if plan.AutoMigrate {
		middleware.Logger.Info("running AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", plan.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return EnsureIndexes(ctx, db)
}

// InspectSchema reports applied and pending migrations plus any partial index
// that has not been created yet. At most the schema_migrations table is created.
func InspectSchema(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaReport, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	report := &SchemaReport{Plan: plan}

	if plan.SQL {
		migrator, err := NewBundledMigrator(db)
		if err != nil {
			return nil, err
		}
		if report.Applied, err = migrator.Applied(ctx); err != nil {
			return nil, err
		}
		if report.Pending, err = migrator.reconcile(report.Applied); err != nil {
			return nil, err
		}
	}

	report.MissingIndexes = MissingIndexes(db)
	return report, nil
}
