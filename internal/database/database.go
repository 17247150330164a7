// Package database handles database connections and migrations.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"bookswap/internal/config"
	"bookswap/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slogGorm routes GORM's logger through the service slog logger. Failed
// statements log at error, slow ones at warn, and the rest only when the
// level is raised to Info.
type slogGorm struct {
	log   *slog.Logger
	level logger.LogLevel
	slow  time.Duration
}

// NewGormLogger returns the logger every connection uses: warnings and
// errors, plus statements slower than 200ms.
func NewGormLogger() logger.Interface {
	return &slogGorm{log: middleware.Logger, level: logger.Warn, slow: 200 * time.Millisecond}
}

func (l *slogGorm) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *slogGorm) Info(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Info, slog.LevelInfo, msg, args)
}

func (l *slogGorm) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Warn, slog.LevelWarn, msg, args)
}

func (l *slogGorm) Error(ctx context.Context, msg string, args ...interface{}) {
	l.emit(ctx, logger.Error, slog.LevelError, msg, args)
}

func (l *slogGorm) emit(ctx context.Context, threshold logger.LogLevel, level slog.Level, msg string, args []interface{}) {
	if l.level >= threshold {
		l.log.Log(ctx, level, fmt.Sprintf(msg, args...))
	}
}

func (l *slogGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	took := time.Since(begin)

	var (
		level slog.Level
		msg   string
	)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		level, msg = slog.LevelError, "sql failed"
	case l.slow > 0 && took > l.slow && l.level >= logger.Warn:
		level, msg = slog.LevelWarn, "slow sql"
	case l.level >= logger.Info:
		level, msg = slog.LevelInfo, "sql"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{slog.String("sql", sql), slog.Int64("rows", rows), slog.Duration("took", took)}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.log.LogAttrs(ctx, level, msg, attrs...)
}

// Connect opens a database connection using the provided configuration and returns the gorm DB instance.
// Schema changes are applied separately through ApplySchema.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(postgresDSN(cfg)), &gorm.Config{Logger: NewGormLogger()})
	if err != nil {
		return nil, fmt.Errorf("open postgres %s/%s: %w", cfg.DBHost, cfg.DBName, err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, fmt.Errorf("configure pool: %w", err)
	}

	middleware.Logger.Info("database connected", slog.String("host", cfg.DBHost), slog.String("db", cfg.DBName))
	return db, nil
}

// postgresDSN builds a keyword/value DSN. sslmode defaults to disable.
func postgresDSN(cfg *config.Config) string {
	sslMode := cfg.DBSSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, sslMode)
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.DBMaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
	if cfg.DBConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute)
	}
	return nil
}
