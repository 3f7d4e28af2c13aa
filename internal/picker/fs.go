package picker

import (
	"context"
	"mime"
	"os"
	"path/filepath"

	"coachmedia/internal/domain/upload"
	media_errors "coachmedia/pkg/errors"
)

// ErrCancelled marks an empty selection.
var ErrCancelled = media_errors.ErrPickerCancelled

// FSPicker resolves local filesystem paths into raw file descriptors. The
// path doubles as the content locator; the pipeline never copies the bytes.
type FSPicker struct{}

func NewFSPicker() *FSPicker {
	return &FSPicker{}
}

func (p *FSPicker) Pick(ctx context.Context, opts Options) ([]upload.RawFile, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrCancelled
	}

	files := make([]upload.RawFile, 0, len(opts.Paths))
	for _, path := range opts.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		files = append(files, upload.RawFile{
			Name:           filepath.Base(path),
			MimeType:       mime.TypeByExtension(filepath.Ext(path)),
			SizeBytes:      info.Size(),
			ContentLocator: path,
		})
	}
	return files, nil
}
