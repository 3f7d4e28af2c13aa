package validator

import (
	"coachmedia/internal/domain/upload"
	media_errors "coachmedia/pkg/errors"
)

// Constraints are the admission rules applied before a file may enter the
// upload queue.
type Constraints struct {
	// MaxFileSizeBytes rejects larger files. Zero means no size limit.
	MaxFileSizeBytes int64
	// AllowedMimeTypes is the set of accepted types. Empty means no
	// type restriction.
	AllowedMimeTypes []string
}

// Result is the outcome of a validation check. Reason is set only when
// Valid is false and carries the exact rejection string the API returns.
type Result struct {
	Valid  bool
	Reason string
}

// Validate applies the constraints to a picked file, size rule first, then
// type rule. It is a pure function: no side effects, deterministic for any
// (file, constraints) pair.
func Validate(file upload.RawFile, c Constraints) Result {
	if c.MaxFileSizeBytes > 0 && file.SizeBytes > c.MaxFileSizeBytes {
		return Result{Valid: false, Reason: media_errors.ErrSizeExceedsLimit.Error()}
	}
	if len(c.AllowedMimeTypes) > 0 && !containsType(c.AllowedMimeTypes, file.MimeType) {
		return Result{Valid: false, Reason: media_errors.ErrUnsupportedType.Error()}
	}
	return Result{Valid: true}
}

func containsType(allowed []string, mimeType string) bool {
	for _, t := range allowed {
		if t == mimeType {
			return true
		}
	}
	return false
}
