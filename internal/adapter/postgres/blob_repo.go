package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"weightlog/internal/domain"
)

var _ domain.BlobStore = (*DB)(nil)

// GetBlob returns the blob stored under key.
func (d *DB) GetBlob(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := d.sql.QueryRowContext(ctx, "SELECT value FROM blobs WHERE key = $1;", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select blob %q: %w", key, err)
	}
	return data, nil
}

// SetBlob upserts the blob for key. A single statement is atomic, so readers
// never observe a partial snapshot.
func (d *DB) SetBlob(ctx context.Context, key string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO blobs(key, value, updated_at) VALUES($1, $2, $3) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at;",
		key, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert blob %q: %w", key, err)
	}
	return nil
}
