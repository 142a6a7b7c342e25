// Package history keeps a durable, append/update log of issued requests and
// their outcomes, with debounced batched writes and a read-through cache.
package history

import (
	"encoding/json"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
)

const (
	// DefaultLimit is the maximum retained record count.
	DefaultLimit = 1000
	// DefaultDebounce is the window within which writes coalesce into one
	// durable flush.
	DefaultDebounce = 100 * time.Millisecond
	// DefaultCacheTTL is how long a loaded snapshot serves List calls
	// before re-reading durable storage.
	DefaultCacheTTL = 60 * time.Second
	// DefaultFlushThreshold forces a flush once this many writes queue up
	// inside one debounce window.
	DefaultFlushThreshold = 50
	// DefaultStorageKey is the durable key the serialized log lives under.
	DefaultStorageKey = "reqprobe.history"
)

// State is a record's position in its lifecycle. Pending records move to
// exactly one of the terminal states; there is no re-open.
type State string

const (
	StatePending   State = "pending"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Record pairs a submitted request with its eventual outcome. Outcome stays
// nil while the record is pending.
type Record struct {
	Request   *request.Request `json:"request"`
	Outcome   *request.Outcome `json:"outcome,omitempty"`
	State     State            `json:"state"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Clone returns a deep copy so callers never alias store internals.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	return &Record{
		Request:   r.Request.Clone(),
		Outcome:   r.Outcome.Clone(),
		State:     r.State,
		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) terminal() bool {
	return r.State == StateCompleted || r.State == StateFailed
}

// Store is the request history log. Mutations mark the in-memory log dirty
// and schedule a coalesced durable write; a failed flush re-queues for the
// next tick instead of dropping the batch.
type Store struct {
	mu sync.Mutex

	kv  KV
	key string

	records []*Record // newest first
	index   map[string]*Record

	loaded   bool
	loadedAt time.Time

	dirty         bool
	flushTimer    *time.Timer
	pendingWrites int

	limit          int
	debounce       time.Duration
	cacheTTL       time.Duration
	flushThreshold int

	now    func() time.Time
	logger *log.Logger
}

type Option func(*Store)

// WithLimit overrides the retention cap.
func WithLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithDebounce overrides the write-coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) {
		s.debounce = d
	}
}

// WithCacheTTL overrides the read-through cache lifetime.
func WithCacheTTL(d time.Duration) Option {
	return func(s *Store) {
		s.cacheTTL = d
	}
}

// WithStorageKey overrides the durable key.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// WithFlushThreshold overrides the queued-write count that forces a flush.
func WithFlushThreshold(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.flushThreshold = n
		}
	}
}

// WithClock injects the time source. Tests use this to advance time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLogger overrides where contract violations and flush failures go.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:             kv,
		key:            DefaultStorageKey,
		index:          make(map[string]*Record),
		limit:          DefaultLimit,
		debounce:       DefaultDebounce,
		cacheTTL:       DefaultCacheTTL,
		flushThreshold: DefaultFlushThreshold,
		now:            time.Now,
		logger:         log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record creates a pending record for the request. The oldest record is
// dropped once the retention cap is exceeded.
func (s *Store) Record(req *request.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked()

	rec := &Record{
		Request:   req.Clone(),
		State:     StatePending,
		CreatedAt: s.now(),
	}

	s.records = append([]*Record{rec}, s.records...)
	s.index[req.ID] = rec

	for len(s.records) > s.limit {
		oldest := s.records[len(s.records)-1]
		delete(s.index, oldest.Request.ID)
		s.records = s.records[:len(s.records)-1]
	}

	s.markDirtyLocked()
}

// Complete attaches the outcome to the matching pending record. An unknown
// id (for example after pruning) or an already-terminal record is logged and
// ignored; it is a contract violation, not a fatal condition.
func (s *Store) Complete(requestID string, outcome *request.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked()

	rec, ok := s.index[requestID]
	if !ok {
		s.logger.Printf("history: complete for unknown request %s, ignoring", requestID)
		return
	}
	if rec.terminal() {
		s.logger.Printf("history: request %s already %s, ignoring complete", requestID, rec.State)
		return
	}

	rec.Outcome = outcome.Clone()
	if outcome != nil && outcome.Success {
		rec.State = StateCompleted
	} else {
		rec.State = StateFailed
	}

	s.markDirtyLocked()
}

// List returns copies of all records, newest first.
func (s *Store) List() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked()

	result := make([]*Record, len(s.records))
	for i, rec := range s.records {
		result[i] = rec.Clone()
	}
	return result
}

// Remove drops the record for the request id, if present.
func (s *Store) Remove(requestID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureLoadedLocked()

	if _, ok := s.index[requestID]; !ok {
		return
	}
	delete(s.index, requestID)
	for i, rec := range s.records {
		if rec.Request.ID == requestID {
			s.records = append(s.records[:i], s.records[i+1:]...)
			break
		}
	}

	s.markDirtyLocked()
}

// Clear drops every record.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
	s.index = make(map[string]*Record)
	s.loaded = true
	s.loadedAt = s.now()

	s.markDirtyLocked()
}

// Flush writes the log to durable storage immediately if dirty.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

// Close flushes any pending writes and stops the debounce timer.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.flushTimer != nil {
		s.flushTimer.Stop()
		s.flushTimer = nil
	}
	return s.flushLocked()
}

// ensureLoadedLocked populates the in-memory log from durable storage on
// first use and refreshes it once the read cache expires. A dirty log is
// authoritative and is never overwritten by a reload.
func (s *Store) ensureLoadedLocked() {
	if s.loaded && (s.dirty || s.now().Sub(s.loadedAt) <= s.cacheTTL) {
		return
	}

	value, ok, err := s.kv.Get(s.key)
	if err != nil {
		s.logger.Printf("history: read failed: %v", err)
		if !s.loaded {
			s.loaded = true
			s.loadedAt = s.now()
		}
		return
	}

	var records []*Record
	if ok {
		if err := json.Unmarshal([]byte(value), &records); err != nil {
			s.logger.Printf("history: corrupt stored log, starting fresh: %v", err)
			records = nil
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	if len(records) > s.limit {
		records = records[:s.limit]
	}

	s.records = records
	s.index = make(map[string]*Record, len(records))
	for _, rec := range records {
		s.index[rec.Request.ID] = rec
	}
	s.loaded = true
	s.loadedAt = s.now()
}

// markDirtyLocked schedules a coalesced flush. Writes inside one debounce
// window share a single durable write; crossing the threshold flushes now.
func (s *Store) markDirtyLocked() {
	s.dirty = true
	s.pendingWrites++

	if s.flushTimer == nil {
		s.flushTimer = time.AfterFunc(s.debounce, s.flushAsync)
	} else if s.pendingWrites >= s.flushThreshold {
		s.flushTimer.Reset(0)
	}
}

func (s *Store) flushAsync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushTimer = nil
	if err := s.flushLocked(); err != nil {
		// Re-queue the batch for the next tick rather than dropping it.
		s.logger.Printf("history: flush failed, retrying: %v", err)
		s.flushTimer = time.AfterFunc(s.debounce, s.flushAsync)
	}
}

func (s *Store) flushLocked() error {
	if !s.dirty {
		return nil
	}

	data, err := json.Marshal(s.records)
	if err != nil {
		return err
	}
	if err := s.kv.Set(s.key, string(data)); err != nil {
		return err
	}

	s.dirty = false
	s.pendingWrites = 0
	s.loadedAt = s.now()
	return nil
}
