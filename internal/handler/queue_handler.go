package handler

import (
	"context"
	"errors"
	"net/http"

	"coachmedia/internal/picker"
	"coachmedia/internal/queue"
	"coachmedia/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
)

// QueueHandler exposes the upload queue over HTTP. Mutations are applied to
// the in-memory queue and acknowledged immediately; upload outcomes flow to
// clients through the WebSocket queue feed, not through these responses.
type QueueHandler struct {
	queue  *queue.Manager
	picker picker.Picker
}

func NewQueueHandler(q *queue.Manager, p picker.Picker) *QueueHandler {
	return &QueueHandler{queue: q, picker: p}
}

func (h *QueueHandler) Add(c *gin.Context) {
	var req httpdto.AddFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	result := h.queue.Add(c.Request.Context(), req.Files)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(result))
}

// AddLocal queues files resolved by the server-side filesystem picker.
// A cancelled selection is a valid outcome: nothing is queued.
func (h *QueueHandler) AddLocal(c *gin.Context) {
	var req httpdto.PickLocalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	files, err := h.picker.Pick(c.Request.Context(), picker.Options{Paths: req.Paths})
	if errors.Is(err, picker.ErrCancelled) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(queue.AddResult{}))
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	result := h.queue.Add(c.Request.Context(), files)
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(result))
}

func (h *QueueHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.QueueResponse{Records: h.queue.List()}))
}

func (h *QueueHandler) Remove(c *gin.Context) {
	h.queue.Remove(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *QueueHandler) Clear(c *gin.Context) {
	h.queue.Clear(c.Request.Context())
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

// Retry re-attempts one errored record. The attempt runs in the background;
// a missing or non-errored id is a no-op, so this always acknowledges.
func (h *QueueHandler) Retry(c *gin.Context) {
	id := c.Param("id")
	go h.queue.RetryOne(context.Background(), id)
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse[any](nil))
}

// Process starts an upload pass over all pending and errored records. The
// pass is single-flight per queue; a pass already in progress makes this a
// no-op.
func (h *QueueHandler) Process(c *gin.Context) {
	go h.queue.UploadAll(context.Background())
	c.JSON(http.StatusAccepted, httpdto.NewSuccessResponse[any](nil))
}
