package httpdto

import "coachmedia/internal/domain/upload"

// AddFilesRequest carries raw file descriptors the mobile client already
// picked; the content locators stay device-side handles the transport
// understands.
type AddFilesRequest struct {
	Files []upload.RawFile `json:"files" binding:"required"`
}

// PickLocalRequest asks the server-side filesystem picker to resolve paths
// into raw files before queueing them.
type PickLocalRequest struct {
	Paths []string `json:"paths"`
}

// QueueResponse is the queue snapshot shape returned by list and add.
type QueueResponse struct {
	Records []upload.FileRecord `json:"records"`
}
