package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"coachmedia/internal/domain/upload"
	"coachmedia/internal/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadAllCompletesPendingRecords(t *testing.T) {
	fake := newFakeTransport(succeedAlways)
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10})
	m.Add(context.Background(), []upload.RawFile{rawJPEG("a.jpg", 1), rawJPEG("b.jpg", 1)})

	m.UploadAll(context.Background())

	for _, rec := range m.List() {
		assert.Equal(t, upload.StatusCompleted, rec.Status)
		assert.Equal(t, 100, rec.ProgressPercent)
		assert.Empty(t, rec.ErrorMessage)
	}
	assert.Equal(t, 2, fake.totalAttempts())
}

func TestUploadAllNoCandidatesIsNoop(t *testing.T) {
	fake := newFakeTransport(succeedAlways)
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10})

	m.UploadAll(context.Background())

	assert.Zero(t, fake.totalAttempts())
}

func TestRetriesExhaustLinearBackoff(t *testing.T) {
	fake := newFakeTransport(failAlways)
	m, _ := newTestManager(t, fake, Config{
		MaxQueueSize:   10,
		MaxRetries:     3,
		RetryBaseDelay: 2 * time.Second,
	})

	var mu sync.Mutex
	var delays []time.Duration
	m.sched.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		delays = append(delays, d)
		mu.Unlock()
		return nil
	}

	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("flaky.jpg", 1)})
	m.UploadAll(context.Background())

	// 1 initial attempt + 3 retries, waits growing linearly.
	assert.Equal(t, 4, fake.attemptsFor("/tmp/flaky.jpg"))
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second}, delays)

	rec, ok := m.get(result.Added[0].ID)
	require.True(t, ok)
	assert.Equal(t, upload.StatusError, rec.Status)
	assert.Equal(t, 3, rec.RetryCount)
	assert.Equal(t, "maximum retry attempts reached", rec.ErrorMessage)
}

func TestUploadRecoversMidRetries(t *testing.T) {
	fake := newFakeTransport(func(locator string, attempt int) []transport.Event {
		if attempt < 3 {
			return []transport.Event{transport.Failed("timeout")}
		}
		return []transport.Event{transport.Progress(100), transport.Completed()}
	})
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 3})

	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("slow.jpg", 1)})
	m.UploadAll(context.Background())

	rec, ok := m.get(result.Added[0].ID)
	require.True(t, ok)
	assert.Equal(t, upload.StatusCompleted, rec.Status)
	assert.Equal(t, 100, rec.ProgressPercent)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Empty(t, rec.ErrorMessage)
}

func TestNoRecordLeftUploading(t *testing.T) {
	fake := newFakeTransport(func(locator string, attempt int) []transport.Event {
		if locator == "/tmp/bad.jpg" {
			return []transport.Event{transport.Failed("boom")}
		}
		return []transport.Event{transport.Completed()}
	})
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 1})
	m.Add(context.Background(), []upload.RawFile{
		rawJPEG("good.jpg", 1), rawJPEG("bad.jpg", 1), rawJPEG("fine.jpg", 1),
	})

	m.UploadAll(context.Background())

	for _, rec := range m.List() {
		assert.NotEqual(t, upload.StatusUploading, rec.Status)
	}
}

func TestSequentialIsolation(t *testing.T) {
	fake := newFakeTransport(func(locator string, attempt int) []transport.Event {
		if locator == "/tmp/first.jpg" {
			return []transport.Event{transport.Failed("flaky link")}
		}
		return []transport.Event{transport.Completed()}
	})
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 2})
	m.Add(context.Background(), []upload.RawFile{rawJPEG("first.jpg", 1), rawJPEG("second.jpg", 1)})

	// While the first record is anywhere short of terminal, the second
	// must not have moved.
	defer m.Subscribe(func(records []upload.FileRecord) {
		require.Len(t, records, 2)
		first, second := records[0], records[1]
		if second.Status != upload.StatusPending {
			assert.Equal(t, upload.StatusError, first.Status)
			assert.Equal(t, "maximum retry attempts reached", first.ErrorMessage)
		}
	})()

	m.UploadAll(context.Background())

	// All attempts on the first file precede the second file's attempt.
	require.Equal(t, 4, fake.totalAttempts())
	assert.Equal(t, []string{"/tmp/first.jpg", "/tmp/first.jpg", "/tmp/first.jpg", "/tmp/second.jpg"}, fake.calls)
}

func TestExhaustedErrorIsAbsorbingForAutomaticPasses(t *testing.T) {
	fake := newFakeTransport(failAlways)
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 2})
	m.Add(context.Background(), []upload.RawFile{rawJPEG("dead.jpg", 1)})

	m.UploadAll(context.Background())
	attemptsAfterFirstPass := fake.totalAttempts()
	require.Equal(t, 3, attemptsAfterFirstPass)

	m.UploadAll(context.Background())
	assert.Equal(t, attemptsAfterFirstPass, fake.totalAttempts())
}

func TestRetryOneResetsCounterAndRunsOnce(t *testing.T) {
	fake := newFakeTransport(failAlways)
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 2})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("stuck.jpg", 1)})
	id := result.Added[0].ID

	m.UploadAll(context.Background())
	require.Equal(t, 3, fake.totalAttempts())

	// Manual retry bypasses the exhausted ceiling: counter resets, exactly
	// one more attempt happens, no automatic follow-ups.
	m.RetryOne(context.Background(), id)

	assert.Equal(t, 4, fake.totalAttempts())
	rec, ok := m.get(id)
	require.True(t, ok)
	assert.Equal(t, upload.StatusError, rec.Status)
	assert.Zero(t, rec.RetryCount)
	assert.Equal(t, "connection reset", rec.ErrorMessage)
}

func TestRetryOneNoopOutsideErrorStatus(t *testing.T) {
	fake := newFakeTransport(succeedAlways)
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("fresh.jpg", 1)})

	m.RetryOne(context.Background(), result.Added[0].ID) // pending, not error
	m.RetryOne(context.Background(), "missing-id")

	assert.Zero(t, fake.totalAttempts())
}

func TestUploadAllSingleFlight(t *testing.T) {
	gated := newGatedTransport(
		[]transport.Event{transport.Progress(10)},
		[]transport.Event{transport.Completed()},
	)
	m, _ := newTestManager(t, gated, Config{MaxQueueSize: 10})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("one.jpg", 1)})
	id := result.Added[0].ID

	done := make(chan struct{})
	go func() {
		m.UploadAll(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		rec, ok := m.get(id)
		return ok && rec.Status == upload.StatusUploading
	}, time.Second, 5*time.Millisecond)

	// A concurrent pass over the same records must not start.
	m.UploadAll(context.Background())
	assert.Equal(t, 1, gated.totalAttempts())

	close(gated.gate)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uploadAll did not finish")
	}

	rec, ok := m.get(id)
	require.True(t, ok)
	assert.Equal(t, upload.StatusCompleted, rec.Status)
}

func TestRemoveMidFlightDiscardsResult(t *testing.T) {
	gated := newGatedTransport(
		[]transport.Event{transport.Progress(30)},
		[]transport.Event{transport.Completed()},
	)
	m, _ := newTestManager(t, gated, Config{MaxQueueSize: 10})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("gone.jpg", 1)})
	id := result.Added[0].ID

	done := make(chan struct{})
	go func() {
		m.UploadAll(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool {
		rec, ok := m.get(id)
		return ok && rec.Status == upload.StatusUploading && rec.ProgressPercent == 30
	}, time.Second, 5*time.Millisecond)

	m.Remove(context.Background(), id)
	close(gated.gate)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("uploadAll did not finish")
	}

	// The in-flight completion was discarded, not resurrected.
	assert.Empty(t, m.List())
}

func TestProgressUpdatesAreMonotonicAndNotified(t *testing.T) {
	fake := newFakeTransport(func(string, int) []transport.Event {
		return []transport.Event{
			transport.Progress(25),
			transport.Progress(50),
			transport.Progress(40), // stale update, must not regress
			transport.Progress(75),
			transport.Completed(),
		}
	})
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("video.jpg", 1)})
	id := result.Added[0].ID

	var seen []int
	defer m.Subscribe(func(records []upload.FileRecord) {
		for _, rec := range records {
			if rec.ID == id && rec.Status == upload.StatusUploading {
				seen = append(seen, rec.ProgressPercent)
			}
		}
	})()

	m.UploadAll(context.Background())

	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
	assert.Contains(t, seen, 75)

	rec, ok := m.get(id)
	require.True(t, ok)
	assert.Equal(t, 100, rec.ProgressPercent)
}

func TestProgressResetsOnRetry(t *testing.T) {
	fake := newFakeTransport(func(locator string, attempt int) []transport.Event {
		if attempt == 1 {
			return []transport.Event{transport.Progress(80), transport.Failed("reset")}
		}
		return []transport.Event{transport.Completed()}
	})
	m, _ := newTestManager(t, fake, Config{MaxQueueSize: 10, MaxRetries: 3})
	result := m.Add(context.Background(), []upload.RawFile{rawJPEG("retry.jpg", 1)})
	id := result.Added[0].ID

	sawReset := false
	defer m.Subscribe(func(records []upload.FileRecord) {
		for _, rec := range records {
			if rec.ID == id && rec.Status == upload.StatusUploading && rec.ProgressPercent == 0 && rec.RetryCount > 0 {
				sawReset = true
			}
		}
	})()

	m.UploadAll(context.Background())

	assert.True(t, sawReset, "progress should reset to 0 when re-entering uploading")
	rec, ok := m.get(id)
	require.True(t, ok)
	assert.Equal(t, upload.StatusCompleted, rec.Status)
}
