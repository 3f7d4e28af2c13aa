package queue

import (
	"context"
	"sync/atomic"
	"time"

	"coachmedia/internal/domain/upload"
	"coachmedia/internal/transport"
	media_errors "coachmedia/pkg/errors"
)

// attempt outcomes
type outcome int

const (
	outcomeCompleted outcome = iota
	outcomeFailed
	outcomeGone // record removed while in flight
)

// scheduler drives records through pending -> uploading -> completed/error
// and applies the automatic retry policy. One scheduler exists per queue;
// its running flag gives UploadAll its single-flight guarantee.
type scheduler struct {
	m          *Manager
	transport  transport.Transport
	maxRetries int
	baseDelay  time.Duration
	running    atomic.Bool

	// sleep is replaced in tests to observe backoff delays.
	sleep func(ctx context.Context, d time.Duration) error
}

func newScheduler(m *Manager, tr transport.Transport, maxRetries int, baseDelay time.Duration) *scheduler {
	return &scheduler{
		m:          m,
		transport:  tr,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		sleep:      sleepContext,
	}
}

// uploadAll processes every eligible record sequentially. The candidate
// list is fixed at call time; records added mid-pass wait for the next one.
func (s *scheduler) uploadAll(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	for _, id := range s.m.candidateIDs() {
		s.processWithRetries(ctx, id)
		if ctx.Err() != nil {
			return
		}
	}
}

// processWithRetries runs one record to a terminal state. After a failed
// attempt the retry counter is advanced and the next attempt is delayed by
// baseDelay * retryCount, so successive waits grow linearly. Once the
// counter reaches maxRetries the record is left in error with the
// exhaustion message; it stays manually retriable.
func (s *scheduler) processWithRetries(ctx context.Context, id string) {
	rec, ok := s.m.get(id)
	if !ok || !rec.Status.Retriable() {
		return
	}
	// A record that already exhausted its retries is absorbing for the
	// automatic path; only a manual retry can revive it.
	if rec.Status == upload.StatusError && rec.RetryCount >= s.maxRetries {
		return
	}

	for {
		if s.attempt(ctx, id) != outcomeFailed {
			return
		}

		rec, ok := s.m.get(id)
		if !ok {
			return
		}
		if rec.RetryCount >= s.maxRetries {
			s.m.update(id, true, func(r *upload.FileRecord) {
				r.ErrorMessage = media_errors.ErrRetriesExhausted.Error()
			})
			return
		}

		var retryCount int
		if !s.m.update(id, true, func(r *upload.FileRecord) {
			r.RetryCount++
			retryCount = r.RetryCount
		}) {
			return
		}
		if err := s.sleep(ctx, s.baseDelay*time.Duration(retryCount)); err != nil {
			return
		}
	}
}

// retryOne performs a single manual attempt for a record in error status.
// The retry counter is reset first and no automatic retries follow; that
// policy belongs to uploadAll. Shares the single-flight flag so a manual
// retry can never interleave with a running pass.
func (s *scheduler) retryOne(ctx context.Context, id string) {
	rec, ok := s.m.get(id)
	if !ok || rec.Status != upload.StatusError {
		return
	}
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	if !s.m.update(id, true, func(r *upload.FileRecord) {
		r.RetryCount = 0
	}) {
		return
	}
	s.attempt(ctx, id)
}

// attempt moves the record into uploading and consumes one transport event
// stream to its terminal event. Updates for an id that has been removed
// mid-flight return false from the manager and are discarded; the stream is
// still drained so the transport goroutine can finish.
func (s *scheduler) attempt(ctx context.Context, id string) outcome {
	rec, ok := s.m.get(id)
	if !ok {
		return outcomeGone
	}

	if !s.m.update(id, true, func(r *upload.FileRecord) {
		r.Status = upload.StatusUploading
		r.ProgressPercent = 0
		r.ErrorMessage = ""
	}) {
		return outcomeGone
	}

	result := outcomeFailed
	failure := "upload failed"
	terminal := false

	for event := range s.transport.Send(ctx, rec.ContentLocator) {
		if terminal {
			continue // drain anything after the terminal event
		}
		switch event.Type {
		case transport.EventProgress:
			percent := clampPercent(event.Percent)
			s.m.update(id, false, func(r *upload.FileRecord) {
				if r.Status == upload.StatusUploading && percent > r.ProgressPercent {
					r.ProgressPercent = percent
				}
			})
		case transport.EventCompleted:
			terminal = true
			result = outcomeCompleted
		case transport.EventFailed:
			terminal = true
			result = outcomeFailed
			if event.Message != "" {
				failure = event.Message
			}
		}
	}

	switch result {
	case outcomeCompleted:
		if !s.m.update(id, true, func(r *upload.FileRecord) {
			r.Status = upload.StatusCompleted
			r.ProgressPercent = 100
			r.ErrorMessage = ""
		}) {
			return outcomeGone
		}
	case outcomeFailed:
		if !s.m.update(id, true, func(r *upload.FileRecord) {
			r.Status = upload.StatusError
			r.ErrorMessage = failure
		}) {
			return outcomeGone
		}
	}
	return result
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
