// Package bootstrap wires the process-wide runtime shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"

	"creaza/internal/cache"
	"creaza/internal/config"
	"creaza/internal/database"
	"creaza/internal/docstore"
	"creaza/internal/identity"
	"creaza/internal/observability"
	"creaza/internal/repository"
	"creaza/internal/seed"

	"github.com/redis/go-redis/v9"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo loads demo data when the store has no users yet.
	SeedDemo bool
}

// Runtime holds the connections every binary needs.
type Runtime struct {
	Store    docstore.Store
	Redis    *redis.Client
	Provider identity.Provider
}

// InitRuntime connects the store and Redis, builds the identity provider and
// optionally seeds demo data.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	store, err := database.OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	provider, err := NewProvider(ctx, cfg, store, r)
	if err != nil {
		_ = store.Close(context.Background())
		return nil, err
	}

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, store); err != nil {
			_ = store.Close(context.Background())
			return nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return &Runtime{Store: store, Redis: r, Provider: provider}, nil
}

// NewProvider returns the identity provider selected by IDENTITY_PROVIDER.
func NewProvider(ctx context.Context, cfg *config.Config, store docstore.Store, r *redis.Client) (identity.Provider, error) {
	switch cfg.IdentityProvider {
	case "cognito":
		p, err := identity.NewCognitoProviderFromEnv(ctx, cfg.CognitoRegion, cfg.CognitoClientID)
		if err != nil {
			return nil, fmt.Errorf("cognito provider: %w", err)
		}
		return p, nil
	case "", "local":
		return identity.NewLocalProvider(repository.NewAccountRepository(store), cfg.JWTSecret, cfg.SessionTTL(), r), nil
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.IdentityProvider)
	}
}

func seedIfEmpty(ctx context.Context, store docstore.Store) error {
	n, err := store.Count(ctx, docstore.Query{Collection: docstore.Users})
	if err != nil {
		return err
	}
	if n > 0 {
		observability.GlobalLogger.InfoContext(ctx, "store already populated, skipping demo seed", "users", n)
		return nil
	}
	report, err := seed.NewSeeder(store, seed.DefaultOptions()).Run(ctx)
	if err != nil {
		return err
	}
	observability.GlobalLogger.InfoContext(ctx, "demo data seeded", "users", report.Users, "pins", report.Pins)
	return nil
}
