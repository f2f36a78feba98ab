package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/multierr"

	"qrmenu/internal/config"
	"qrmenu/internal/database"
	"qrmenu/internal/importer"
	"qrmenu/internal/migrate"
	"qrmenu/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	flags := pflag.NewFlagSet("import", pflag.ExitOnError)
	dryRun := flags.Bool("dry-run", false, "load and summarise the snapshots without writing")
	noS3 := flags.Bool("local", false, "read files from local disk only, even when S3 is enabled")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: import [flags] menu-database.json [more.json.gz ...]\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	paths := flags.Args()
	if len(paths) == 0 {
		flags.Usage()
		return fmt.Errorf("at least one snapshot path is required")
	}

	cfg, err := config.LoadImport()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger, "import")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Snapshot loader with S3 first and local fallback
	var s3Loader importer.Loader
	if cfg.S3.Enabled && !*noS3 {
		s3Loader, err = importer.NewS3Loader(ctx, cfg.S3.Bucket, cfg.S3.Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 loader, falling back to local file system only")
			s3Loader = nil
		}
	}
	loader := importer.NewFallbackLoader(s3Loader, importer.NewFileLoader(logger), cfg.S3.ImportPrefix, logger)

	snaps, err := importer.LoadAll(ctx, loader, paths, logger)
	if err != nil {
		return err
	}
	snap := importer.Merge(snaps...)

	fmt.Printf("loaded %d admins, %d lists, %d items from %d file(s)\n",
		len(snap.Admins), len(snap.Lists), len(snap.Items), len(paths))
	if *dryRun {
		return nil
	}

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if cfg.Migrations.AutoApply {
		if err := migrate.Apply(ctx, pool, logger); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	im := importer.New(repository.NewAdminRepository(pool, logger), repository.NewMenuRepository(pool, logger), logger)
	report, err := im.Import(ctx, snap)
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	fmt.Printf("admins: %d created, %d skipped\n", report.AdminsCreated, report.AdminsSkipped)
	fmt.Printf("lists:  %d created, %d skipped\n", report.ListsCreated, report.ListsSkipped)
	fmt.Printf("items:  %d created, %d skipped\n", report.ItemsCreated, report.ItemsSkipped)

	if report.Errors != nil {
		for _, e := range multierr.Errors(report.Errors) {
			fmt.Fprintf(os.Stderr, "  failed: %v\n", e)
		}
		return fmt.Errorf("%d record(s) failed to import", report.Failed())
	}
	return nil
}
