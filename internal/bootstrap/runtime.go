// Package bootstrap wires the process-wide dependencies shared by the server and CLI commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"bookswap/internal/cache"
	"bookswap/internal/config"
	"bookswap/internal/database"
	"bookswap/internal/featureflags"
	"bookswap/internal/geocoding"
	"bookswap/internal/middleware"
	"bookswap/internal/payments"
	"bookswap/internal/seed"
	"bookswap/internal/storage"
	"bookswap/internal/valuation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	ApplySchema  bool
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis, applies the schema and optionally seeds demo data.
// A nil redis client means the cache and live push are disabled.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("schema apply failed: %w", err)
		}
	}

	rdb, err := cache.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		middleware.Logger.Warn("redis unavailable, running without cache and live push", "error", err)
		rdb = nil
	}

	if opts.SeedDemoData {
		if err := seed.Demo(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, rdb, nil
}

// Integrations are the external collaborators behind the service layer.
type Integrations struct {
	Objects  storage.ObjectStore
	Valuer   valuation.Valuer
	Geocoder geocoding.Geocoder
	// Payments is nil when no provider is configured or the payments flag is off.
	Payments payments.Provider
}

// InitIntegrations builds the object store, valuer, geocoder and payment provider from config.
func InitIntegrations(ctx context.Context, cfg *config.Config, flags *featureflags.Manager) (*Integrations, error) {
	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("object storage: %w", err)
	}

	out := &Integrations{
		Objects:  objects,
		Valuer:   valuation.FixedValuer(valuation.MinPoints),
		Geocoder: geocoding.NewNominatimClient(cfg.GeocoderURL, cfg.GeocoderUserAgent),
	}

	if cfg.GeminiAPIKey != "" && flags.EnabledByDefault(featureflags.AIValuation, uuid.Nil) {
		valuer, err := valuation.NewGeminiValuer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		out.Valuer = valuer
	} else {
		middleware.Logger.Info("AI valuation disabled, new listings get the minimum value", "points", valuation.MinPoints)
	}

	if flags.EnabledByDefault(featureflags.Payments, uuid.Nil) {
		provider, err := payments.NewStripeProvider(cfg.StripeSecretKey)
		switch {
		case errors.Is(err, payments.ErrNotConfigured):
			middleware.Logger.Info("payments disabled: STRIPE_SECRET_KEY not set")
		case err != nil:
			return nil, err
		default:
			out.Payments = provider
		}
	}

	return out, nil
}
