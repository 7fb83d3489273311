package main

import (
	"context"
	"fmt"

	"weightlog/internal/adapter/fs"
	"weightlog/internal/adapter/memory"
	"weightlog/internal/adapter/postgres"
	"weightlog/internal/adapter/s3"
	"weightlog/internal/adapter/sqlite"
	"weightlog/internal/config"
	"weightlog/internal/domain"
)

func noClose() error { return nil }

// openBlobStore builds the blob store selected by cfg.BlobDriver. The returned
// func releases it.
func openBlobStore(ctx context.Context, cfg config.Config) (domain.BlobStore, func() error, error) {
	switch cfg.BlobDriver {
	case config.DriverMemory:
		return memory.New(), noClose, nil
	case config.DriverFS:
		st, err := fs.New(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return st, noClose, nil
	case config.DriverSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLiteFile())
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case config.DriverPostgres:
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	case config.DriverS3:
		st, err := s3.New(ctx, s3.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return st, noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}
