package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"coachmedia/internal/domain/upload"
	"coachmedia/internal/persistence"
	"coachmedia/internal/transport"
	"coachmedia/internal/validator"
	media_errors "coachmedia/pkg/errors"
	"coachmedia/pkg/logger"
)

// Observer receives a defensive copy of the queue after every mutation.
// Observers are invoked synchronously, before the persistence write
// resolves.
type Observer func(records []upload.FileRecord)

// Config carries the queue and retry constraints, usually mapped from
// config.UploadConfig at wiring time.
type Config struct {
	MaxQueueSize   int
	Constraints    validator.Constraints
	MaxRetries     int
	RetryBaseDelay time.Duration
	AutoUpload     bool
}

// Rejected pairs a raw file that failed admission with the reason string.
type Rejected struct {
	File   upload.RawFile `json:"file"`
	Reason string         `json:"reason"`
}

// AddResult reports the outcome of one Add call. Rejections preserve the
// order the files were offered in.
type AddResult struct {
	Added    []upload.FileRecord `json:"added"`
	Rejected []Rejected          `json:"rejected"`
}

const persistTimeout = 5 * time.Second

// Manager owns the in-memory upload queue. All mutations go through its
// methods so that the persistence mirror and observer notifications always
// accompany the state change. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	records []upload.FileRecord

	store persistence.Store
	log   *logger.Logger
	cfg   Config

	observers    map[int]Observer
	nextObserver int

	// Persistence writes are fire-and-forget but must apply in the order
	// the mutations happened; each write carries a sequence number taken
	// under mu and stale writes are dropped.
	persistSeq     atomic.Uint64
	persistMu      sync.Mutex
	persistApplied uint64

	sched *scheduler
}

func NewManager(store persistence.Store, tr transport.Transport, log *logger.Logger, cfg Config) *Manager {
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 2 * time.Second
	}
	m := &Manager{
		store:     store,
		log:       log,
		cfg:       cfg,
		observers: make(map[int]Observer),
	}
	m.sched = newScheduler(m, tr, cfg.MaxRetries, cfg.RetryBaseDelay)
	return m
}

// Add validates each raw file and appends the admitted ones as pending
// records. Files beyond the queue capacity are rejected with "queue full".
// Observers are notified once for the whole call; the snapshot write does
// not block the caller.
func (m *Manager) Add(ctx context.Context, rawFiles []upload.RawFile) AddResult {
	var result AddResult

	m.mu.Lock()
	for _, raw := range rawFiles {
		if len(m.records)+len(result.Added) >= m.cfg.MaxQueueSize {
			result.Rejected = append(result.Rejected, Rejected{File: raw, Reason: media_errors.ErrQueueFull.Error()})
			continue
		}
		if v := validator.Validate(raw, m.cfg.Constraints); !v.Valid {
			result.Rejected = append(result.Rejected, Rejected{File: raw, Reason: v.Reason})
			continue
		}
		result.Added = append(result.Added, upload.NewFileRecord(raw))
	}
	m.records = append(m.records, result.Added...)
	snapshot := upload.CloneRecords(m.records)
	seq := m.persistSeq.Add(1)
	m.mu.Unlock()

	if len(result.Added) > 0 {
		m.notify(snapshot)
		m.persistAsync(seq, snapshot)
		if m.cfg.AutoUpload {
			go m.UploadAll(context.Background())
		}
	}
	return result
}

// Remove deletes the record with the given id. A missing id is a no-op.
// An in-flight transport call for a removed record is left to finish; its
// updates are discarded because the id is gone.
func (m *Manager) Remove(ctx context.Context, id string) {
	m.mu.Lock()
	idx := m.indexOfLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return
	}
	m.records = append(m.records[:idx], m.records[idx+1:]...)
	snapshot := upload.CloneRecords(m.records)
	seq := m.persistSeq.Add(1)
	m.mu.Unlock()

	m.notify(snapshot)
	m.persistAsync(seq, snapshot)
}

// Clear empties the queue and deletes the persisted snapshot.
func (m *Manager) Clear(ctx context.Context) {
	m.mu.Lock()
	m.records = nil
	seq := m.persistSeq.Add(1)
	m.mu.Unlock()

	m.notify(nil)
	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		m.persistMu.Lock()
		defer m.persistMu.Unlock()
		if seq <= m.persistApplied {
			return
		}
		m.persistApplied = seq
		if err := m.store.Clear(cctx); err != nil {
			m.log.Warnf("failed to clear persisted queue snapshot: %v", err)
		}
	}()
}

// List returns a defensive copy of the current queue in insertion order.
func (m *Manager) List() []upload.FileRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return upload.CloneRecords(m.records)
}

// Restore replaces the in-memory queue with the persisted snapshot.
// Records persisted as uploading are normalized to error: an in-flight
// transfer cannot have survived a process restart.
func (m *Manager) Restore(ctx context.Context) error {
	records, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	for i := range records {
		if records[i].Status == upload.StatusUploading {
			records[i].Status = upload.StatusError
			records[i].ErrorMessage = "upload interrupted"
			records[i].ProgressPercent = 0
		}
	}

	m.mu.Lock()
	m.records = records
	snapshot := upload.CloneRecords(m.records)
	seq := m.persistSeq.Add(1)
	m.mu.Unlock()

	m.notify(snapshot)
	m.persistAsync(seq, snapshot)
	return nil
}

// RetryOne re-attempts a single record currently in error status. The
// retry counter is reset first, so manual retries are never blocked by the
// automatic ceiling. Missing ids and records in any other status are
// no-ops. The call blocks until the attempt resolves.
func (m *Manager) RetryOne(ctx context.Context, id string) {
	m.sched.retryOne(ctx, id)
}

// UploadAll drives every pending and error record, in insertion order,
// through the transport one file at a time. Each file fully resolves,
// including its automatic retries, before the next one starts. Only one
// pass runs at a time per queue; overlapping calls return immediately.
func (m *Manager) UploadAll(ctx context.Context) {
	m.sched.uploadAll(ctx)
}

// Subscribe registers an observer and returns its unsubscribe function.
func (m *Manager) Subscribe(obs Observer) func() {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = obs
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

// notify invokes every observer with the given snapshot. Called outside
// the queue lock so observers may call back into the manager.
func (m *Manager) notify(snapshot []upload.FileRecord) {
	m.mu.Lock()
	observers := make([]Observer, 0, len(m.observers))
	for _, obs := range m.observers {
		observers = append(observers, obs)
	}
	m.mu.Unlock()

	for _, obs := range observers {
		obs(upload.CloneRecords(snapshot))
	}
}

// persistAsync mirrors the snapshot to the store without blocking the
// caller. Failures are logged and swallowed: durability is best-effort
// and must never stall the in-memory queue. A write that lost the race to
// a newer one is dropped instead of clobbering it.
func (m *Manager) persistAsync(seq uint64, snapshot []upload.FileRecord) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		m.persistMu.Lock()
		defer m.persistMu.Unlock()
		if seq <= m.persistApplied {
			return
		}
		m.persistApplied = seq
		if err := m.store.Save(ctx, snapshot); err != nil {
			m.log.Warnf("failed to persist queue snapshot: %v", err)
		}
	}()
}

// get returns a copy of the record with the given id.
func (m *Manager) get(id string) (upload.FileRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if idx := m.indexOfLocked(id); idx >= 0 {
		return m.records[idx], true
	}
	return upload.FileRecord{}, false
}

// candidateIDs snapshots the ids of records eligible for an upload pass,
// in insertion order.
func (m *Manager) candidateIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, rec := range m.records {
		if rec.Status.Retriable() {
			ids = append(ids, rec.ID)
		}
	}
	return ids
}

// update mutates the record with the given id and notifies observers.
// It returns false when the id is no longer present, which is how late
// transport updates for removed records get discarded. The snapshot write
// is skipped for high-frequency progress updates.
func (m *Manager) update(id string, persist bool, mutate func(*upload.FileRecord)) bool {
	m.mu.Lock()
	idx := m.indexOfLocked(id)
	if idx < 0 {
		m.mu.Unlock()
		return false
	}
	mutate(&m.records[idx])
	snapshot := upload.CloneRecords(m.records)
	seq := m.persistSeq.Add(1)
	m.mu.Unlock()

	m.notify(snapshot)
	if persist {
		m.persistAsync(seq, snapshot)
	}
	return true
}

func (m *Manager) indexOfLocked(id string) int {
	for i := range m.records {
		if m.records[i].ID == id {
			return i
		}
	}
	return -1
}
