package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/wolfman30/clinic-bi/cmd/mainconfig"
	"github.com/wolfman30/clinic-bi/internal/app/bootstrap"
	"github.com/wolfman30/clinic-bi/internal/archive"
	appconfig "github.com/wolfman30/clinic-bi/internal/config"
	"github.com/wolfman30/clinic-bi/internal/dashboard"
	"github.com/wolfman30/clinic-bi/internal/dataset"
	"github.com/wolfman30/clinic-bi/pkg/logging"
)

// Usage: snapshot [-]
//
// Computes every dashboard view from the configured dataset source and writes
// them to SNAPSHOT_BUCKET, or to stdout as JSONL when no bucket is set. With
// "-" the dataset document is read from stdin.
func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		logger.Error("snapshot failed", "error", err)
		os.Exit(1)
	}
}

// run logs to stderr; stdout carries only the JSONL export.
func run(ctx context.Context, cfg *appconfig.Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	logger := logging.NewWithWriter(cfg.LogLevel, stderr)
	source, err := buildSource(ctx, cfg, args, stdin, logger)
	if err != nil {
		return err
	}

	var s3Client archive.S3API
	if cfg.SnapshotBucket != "" {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		s3Client = mainconfig.NewS3Client(awsCfg, cfg)
	}
	return export(ctx, cfg, source, archive.NewStore(s3Client, cfg.SnapshotBucket, logger), stdout, logger)
}

func buildSource(ctx context.Context, cfg *appconfig.Config, args []string, stdin io.Reader, logger *logging.Logger) (dataset.Source, error) {
	if len(args) > 0 && args[0] == "-" {
		d, _, err := dataset.Decode(stdin)
		if err != nil {
			return nil, err
		}
		return dataset.NewStaticSource(d), nil
	}

	var s3Client dataset.S3API
	if cfg.DatasetSource == appconfig.SourceS3 {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		s3Client = mainconfig.NewS3Client(awsCfg, cfg)
	}
	// The snapshot CLI has no pool; the postgres source is served by the API only.
	return bootstrap.BuildSource(cfg, s3Client, nil, logger)
}

func export(ctx context.Context, cfg *appconfig.Config, source dataset.Source, store *archive.Store, stdout io.Writer, logger *logging.Logger) error {
	svc := dashboard.NewService(source, bootstrap.EngineOptions(cfg), dashboard.NoopCache{}, nil, logger)
	if _, err := svc.Reload(ctx); err != nil {
		return err
	}

	runID := uuid.NewString()
	exp, err := archive.Collect(ctx, svc, runID)
	if err != nil {
		return err
	}

	if !store.Enabled() {
		return archive.WriteJSONL(stdout, exp)
	}
	entries, err := store.Write(ctx, exp)
	if err != nil {
		return err
	}
	logger.Info("snapshot complete", "run_id", runID, "documents", len(entries))
	return nil
}
