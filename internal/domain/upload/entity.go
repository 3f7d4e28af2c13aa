package upload

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status is the upload lifecycle state of a queued file.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Retriable reports whether a record in this status is eligible for an
// upload pass (pending and error records are; uploading and completed are not).
func (s Status) Retriable() bool {
	return s == StatusPending || s == StatusError
}

const DefaultMimeType = "application/octet-stream"

// RawFile is what the picker hands over: a descriptor plus an opaque
// locator for the bytes. Every field except the locator may be missing.
type RawFile struct {
	Name           string `json:"name"`
	MimeType       string `json:"mime_type"`
	SizeBytes      int64  `json:"size_bytes"`
	ContentLocator string `json:"content_locator"`
}

// FileRecord tracks one user-selected file through validation, upload and
// completion or failure. Records are passed by value; the queue holds the
// only mutable copies.
type FileRecord struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	MimeType        string    `json:"mime_type"`
	SizeBytes       int64     `json:"size_bytes"`
	ContentLocator  string    `json:"content_locator"`
	Status          Status    `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	RetryCount      int       `json:"retry_count"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewFileRecord builds a pending record from a picked file, filling in the
// generated-name and mime-type fallbacks.
func NewFileRecord(raw RawFile) FileRecord {
	name := raw.Name
	if name == "" {
		name = fmt.Sprintf("photo_%d.jpg", time.Now().UnixMilli())
	}
	mimeType := raw.MimeType
	if mimeType == "" {
		mimeType = DefaultMimeType
	}
	return FileRecord{
		ID:             uuid.NewString(),
		Name:           name,
		MimeType:       mimeType,
		SizeBytes:      raw.SizeBytes,
		ContentLocator: raw.ContentLocator,
		Status:         StatusPending,
		CreatedAt:      time.Now(),
	}
}

// CloneRecords returns an independent copy of a record slice. Callers get
// these from List and observer notifications so they can never mutate the
// queue's own state.
func CloneRecords(records []FileRecord) []FileRecord {
	out := make([]FileRecord, len(records))
	copy(out, records)
	return out
}
