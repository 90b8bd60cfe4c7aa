package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/utafrali/catalog-search/internal/config"
	"github.com/utafrali/catalog-search/internal/repository/memory"
	"github.com/utafrali/catalog-search/internal/repository/postgres"
	"github.com/utafrali/catalog-search/internal/seed"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/logger"
)

// seederOpener builds a Seeder over the configured store. The returned
// function releases the store.
type seederOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*seed.Seeder, func(), error)

func newRootCmd(open seederOpener) *cobra.Command {
	opts := seed.Options{
		Count: seed.DefaultCount,
		Batch: seed.DefaultBatch,
		Seed:  seed.DefaultSeed,
	}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate bilingual sample products",
		Long: `Creates the sample categories and brands if missing, then inserts
reproducible English/Arabic products with unique EAN-13 barcodes.
The store is selected with the same environment variables as the server.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, open, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Count, "count", "c", opts.Count, "number of products to create")
	cmd.Flags().IntVarP(&opts.Batch, "batch", "b", opts.Batch, "products per insert batch")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed for reproducible data")

	return cmd
}

func runSeed(cmd *cobra.Command, open seederOpener, opts seed.Options) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(config.ServiceName+"-seed", cfg.LogLevel)

	seeder, closeStore, err := open(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	res, err := seeder.Run(cmd.Context(), opts)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	cmd.Printf("Successfully created %d products (%d categories, %d brands)\n", res.Products, res.Categories, res.Brands)
	return nil
}

func openSeeder(ctx context.Context, cfg *config.Config, log *slog.Logger) (*seed.Seeder, func(), error) {
	if cfg.StoreBackend == config.StoreMemory {
		log.Warn("STORE_BACKEND is memory, generated products are discarded on exit")
		store := memory.New()
		return seed.New(store.Products(), store.Brands(), store.Categories(), log), func() {}, nil
	}

	database.SetSlowQueryLogging(cfg.SlowQueryThreshold(), log)

	pgCfg := cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, postgres.Migrations(), log); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	seeder := seed.New(
		postgres.NewProductRepository(pool),
		postgres.NewBrandRepository(pool),
		postgres.NewCategoryRepository(pool),
		log,
	)
	return seeder, pool.Close, nil
}
