package picker

import (
	"context"

	"coachmedia/internal/domain/upload"
)

// Options describes one selection request. For the filesystem picker the
// selection is the list of paths; device pickers (camera, gallery) live in
// the mobile shell and satisfy the same interface remotely.
type Options struct {
	Paths []string
}

// Picker hands user-selected files to the pipeline. A cancelled selection
// returns ErrCancelled and must cause no queue mutation; it is a normal
// outcome, not a failure.
type Picker interface {
	Pick(ctx context.Context, opts Options) ([]upload.RawFile, error)
}
