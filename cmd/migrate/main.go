// Command migrate manages the BookSwap schema.
//
//	migrate up             apply pending SQL migrations
//	migrate auto           AutoMigrate the models (refused in production without opt-in)
//	migrate status         print the schema plan, migrations and missing indexes
//	migrate down VERSION   revert the latest migration
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/database"
	"bookswap/internal/middleware"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage: migrate <up|auto|status|down VERSION>")

func main() {
	timeout := flag.Duration("timeout", 5*time.Minute, "Abort if the command runs longer than this")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	err := run(ctx, flag.Args())
	cancel()
	if err != nil {
		middleware.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}

	switch args[0] {
	case "up":
		migrator, err := database.NewBundledMigrator(db)
		if err != nil {
			return err
		}
		n, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		if err := database.EnsureIndexes(ctx, db); err != nil {
			return err
		}
		middleware.Logger.Info("schema up to date", slog.Int("applied", n))
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		return database.ApplySchema(ctx, db, cfg)
	case "status":
		return printStatus(ctx, db, cfg)
	case "down":
		if len(args) < 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("version %q: %w", args[1], err)
		}
		migrator, err := database.NewBundledMigrator(db)
		if err != nil {
			return err
		}
		return migrator.Down(ctx, version)
	default:
		return errUsage
	}
	return nil
}

func printStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	report, err := database.InspectSchema(ctx, db, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("mode %s (env %s): sql=%t automigrate=%t\n",
		report.Plan.Mode, report.Plan.Env, report.Plan.SQL, report.Plan.AutoMigrate)
	for _, row := range report.Applied {
		fmt.Printf("  applied  %06d_%s  %s\n", row.Version, row.Name, row.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range report.Pending {
		fmt.Printf("  pending  %s\n", m.Label())
	}
	for _, name := range report.MissingIndexes {
		fmt.Printf("  missing index %s\n", name)
	}
	return nil
}
