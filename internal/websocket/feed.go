package websocket

import (
	"encoding/json"

	"coachmedia/internal/domain/upload"
	"coachmedia/internal/queue"
	"coachmedia/pkg/logger"
)

// QueueFeed bridges the queue's observer contract onto the hub: every
// mutation notification becomes one broadcast frame, so connected clients
// re-render from state instead of tracking deltas.
type QueueFeed struct {
	hub         *Hub
	queue       *queue.Manager
	log         *logger.Logger
	unsubscribe func()
}

func NewQueueFeed(hub *Hub, q *queue.Manager, log *logger.Logger) *QueueFeed {
	return &QueueFeed{hub: hub, queue: q, log: log}
}

// Start subscribes the feed to the queue. Call Stop to detach.
func (f *QueueFeed) Start() {
	f.unsubscribe = f.queue.Subscribe(func(records []upload.FileRecord) {
		f.hub.Broadcast(f.encode(records))
	})
}

func (f *QueueFeed) Stop() {
	if f.unsubscribe != nil {
		f.unsubscribe()
		f.unsubscribe = nil
	}
}

// Snapshot returns the current queue state encoded as a feed frame, used
// for the initial push when a client connects.
func (f *QueueFeed) Snapshot() []byte {
	return f.encode(f.queue.List())
}

type queueFrame struct {
	Type    string              `json:"type"`
	Records []upload.FileRecord `json:"records"`
}

func (f *QueueFeed) encode(records []upload.FileRecord) []byte {
	if records == nil {
		records = []upload.FileRecord{}
	}
	data, err := json.Marshal(queueFrame{Type: "queue", Records: records})
	if err != nil {
		if f.log != nil {
			f.log.Errorf("failed to encode queue frame: %v", err)
		}
		return nil
	}
	return data
}
