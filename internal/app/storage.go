package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/domain/cart"
	"github.com/xenking/littlelemon/internal/domain/menu"
	"github.com/xenking/littlelemon/internal/domain/order"
	"github.com/xenking/littlelemon/internal/seed"
	"github.com/xenking/littlelemon/internal/storage/memory"
	"github.com/xenking/littlelemon/internal/storage/postgres"
	"github.com/xenking/littlelemon/pkg/health"
)

// repositories is the set of repositories one storage driver provides.
type repositories struct {
	Menu   menu.Repository
	Carts  cart.Repository
	Orders order.Repository
	Users  interface {
		auth.Directory
		auth.CredentialStore
	}
	Seeder seed.Sink

	close func()
}

// openStorage builds the repositories for cfg.Storage.Driver and registers
// the driver's health checks.
func openStorage(ctx context.Context, cfg *Config, hs *health.Health) (*repositories, error) {
	lg := zctx.From(ctx)

	switch cfg.Storage.Driver {
	case StorageMemory:
		lg.Warn("Using in-memory storage, data is lost on restart")
		s := memory.New()
		return &repositories{
			Menu:   s.Menu(),
			Carts:  s.Carts(),
			Orders: s.Orders(),
			Users:  s.Users(),
			Seeder: s.Seeder(),
			close:  func() {},
		}, nil
	case StoragePostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, errors.Wrap(err, "run migrations")
		}

		hs.Add(health.Check{
			Name:    "postgres",
			Kind:    health.Readiness,
			Timeout: 5 * time.Second,
			Func:    health.PingCheck(pool),
		})
		hs.Add(health.Check{
			Name:    "postgres-pool",
			Kind:    health.Readiness,
			Timeout: time.Second,
			Func: health.PoolSaturationCheck(func() health.PoolStats {
				return pool.Stat()
			}, 100),
			FailureThreshold: 5,
		})

		return &repositories{
			Menu:   postgres.NewMenuRepository(pool),
			Carts:  postgres.NewCartRepository(pool),
			Orders: postgres.NewOrderRepository(pool),
			Users:  postgres.NewUserRepository(pool),
			Seeder: postgres.NewSeeder(pool),
			close:  pool.Close,
		}, nil
	default:
		return nil, errors.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// applySeed loads and applies the configured seed files.
func applySeed(ctx context.Context, sink seed.Sink, files []string) error {
	if len(files) == 0 {
		return nil
	}
	lg := zctx.From(ctx)

	c, dups, err := seed.LoadFiles(ctx, files...)
	if err != nil {
		return errors.Wrap(err, "load seed")
	}
	st, err := seed.Apply(ctx, sink, c, auth.HashPassword)
	if err != nil {
		return errors.Wrap(err, "apply seed")
	}
	lg.Info("Seed applied",
		zap.Strings("files", files),
		zap.Int("categories", st.Categories),
		zap.Int("menu_items", st.MenuItems),
		zap.Int("users", st.Users),
		zap.Int("duplicates", dups),
	)
	return nil
}
