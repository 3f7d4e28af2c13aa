package persistence

import (
	"context"

	"coachmedia/internal/domain/upload"
)

// Store persists the full upload queue snapshot under one fixed key.
// Save overwrites the previous snapshot; there is no partial persistence.
// Load returns (nil, nil) when no snapshot exists.
type Store interface {
	Save(ctx context.Context, records []upload.FileRecord) error
	Load(ctx context.Context) ([]upload.FileRecord, error)
	Clear(ctx context.Context) error
}
