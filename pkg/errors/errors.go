package media_errors

import (
	"errors"
	"time"
)

// Common errors
var (
	ErrSizeExceedsLimit = errors.New("size exceeds limit")
	ErrUnsupportedType  = errors.New("unsupported type")
	ErrQueueFull        = errors.New("queue full")
	ErrRetriesExhausted = errors.New("maximum retry attempts reached")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPickerCancelled  = errors.New("picker cancelled")
)

// NowPtr returns a pointer to current time
func NowPtr() *time.Time {
	now := time.Now()
	return &now
}
