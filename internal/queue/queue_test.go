package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"coachmedia/internal/domain/upload"
	"coachmedia/internal/persistence"
	"coachmedia/internal/transport"
	"coachmedia/internal/validator"
	"coachmedia/pkg/logger"
)

// fakeTransport replays a scripted event stream per (locator, attempt) and
// records every send in order.
type fakeTransport struct {
	mu     sync.Mutex
	calls  []string
	counts map[string]int
	script func(locator string, attempt int) []transport.Event
}

func newFakeTransport(script func(locator string, attempt int) []transport.Event) *fakeTransport {
	return &fakeTransport{
		counts: make(map[string]int),
		script: script,
	}
}

func (f *fakeTransport) Send(ctx context.Context, locator string) <-chan transport.Event {
	f.mu.Lock()
	f.counts[locator]++
	attempt := f.counts[locator]
	f.calls = append(f.calls, locator)
	f.mu.Unlock()

	events := make(chan transport.Event, 8)
	go func() {
		defer close(events)
		for _, e := range f.script(locator, attempt) {
			events <- e
		}
	}()
	return events
}

func (f *fakeTransport) attemptsFor(locator string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[locator]
}

func (f *fakeTransport) totalAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func succeedAlways(string, int) []transport.Event {
	return []transport.Event{transport.Progress(50), transport.Completed()}
}

func failAlways(string, int) []transport.Event {
	return []transport.Event{transport.Progress(10), transport.Failed("connection reset")}
}

// gatedTransport blocks each send between its pre and post events until the
// gate channel is closed.
type gatedTransport struct {
	mu       sync.Mutex
	attempts int
	gate     chan struct{}
	pre      []transport.Event
	post     []transport.Event
}

func newGatedTransport(pre, post []transport.Event) *gatedTransport {
	return &gatedTransport{
		gate: make(chan struct{}),
		pre:  pre,
		post: post,
	}
}

func (g *gatedTransport) Send(ctx context.Context, locator string) <-chan transport.Event {
	g.mu.Lock()
	g.attempts++
	g.mu.Unlock()

	events := make(chan transport.Event, 8)
	go func() {
		defer close(events)
		for _, e := range g.pre {
			events <- e
		}
		<-g.gate
		for _, e := range g.post {
			events <- e
		}
	}()
	return events
}

func (g *gatedTransport) totalAttempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

func newTestManager(t *testing.T, tr transport.Transport, cfg Config) (*Manager, *persistence.MemoryStore) {
	t.Helper()
	store := persistence.NewMemoryStore()
	m := NewManager(store, tr, logger.New(logger.DevelopmentMode), cfg)
	// Collapse backoff waits so retry tests run instantly; tests that
	// assert delays install their own recorder.
	m.sched.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return m, store
}

func rawJPEG(name string, size int64) upload.RawFile {
	return upload.RawFile{
		Name:           name,
		MimeType:       "image/jpeg",
		SizeBytes:      size,
		ContentLocator: "/tmp/" + name,
	}
}

func jpegOnly(maxSize int64) validator.Constraints {
	return validator.Constraints{
		MaxFileSizeBytes: maxSize,
		AllowedMimeTypes: []string{"image/jpeg"},
	}
}
