package domain

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by a BlobStore when no blob exists for a key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is the port for key-value blob persistence. SetBlob must replace
// the previous value atomically: a reader sees either the old or the new bytes.
type BlobStore interface {
	GetBlob(ctx context.Context, key string) ([]byte, error)
	SetBlob(ctx context.Context, key string, data []byte) error
}
