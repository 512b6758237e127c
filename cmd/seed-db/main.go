// Command seed-db applies seed files to a PostgreSQL database: categories,
// menu items and accounts with their group memberships. Re-running it
// updates existing rows in place.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/littlelemon/internal/domain/auth"
	"github.com/xenking/littlelemon/internal/seed"
	"github.com/xenking/littlelemon/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		files       string
		verbose     bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&files, "files", "db/seed/littlelemon.json", "comma separated seed files (plain or .gz JSON)")
	flag.BoolVar(&verbose, "v", false, "log every seeded user")
	flag.Parse()

	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level.SetLevel(zap.DebugLevel)
	}
	lg, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx = zctx.Base(ctx, lg)

	if err := run(ctx, databaseURL, strings.Split(files, ",")); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed successfully")
}

func run(ctx context.Context, databaseURL string, files []string) error {
	lg := zctx.From(ctx)

	c, dups, err := seed.LoadFiles(ctx, files...)
	if err != nil {
		return errors.Wrap(err, "load")
	}
	lg.Info("Seed files loaded",
		zap.Strings("files", files),
		zap.Int("categories", len(c.Categories)),
		zap.Int("menu_items", len(c.MenuItems)),
		zap.Int("users", len(c.Users)),
		zap.Int("duplicates", dups),
	)

	lg.Info("Connecting to database")
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "migrate")
	}

	st, err := seed.Apply(ctx, postgres.NewSeeder(pool), c, auth.HashPassword)
	if err != nil {
		return err
	}
	lg.Info("Seed applied",
		zap.Int("categories", st.Categories),
		zap.Int("menu_items", st.MenuItems),
		zap.Int("users", st.Users),
	)
	return nil
}
