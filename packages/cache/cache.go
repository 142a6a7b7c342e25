// Package cache provides a bounded, time-expiring store of execution
// outcomes keyed by request fingerprint.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
)

const (
	// DefaultTTL is how long a cached outcome stays valid.
	DefaultTTL = 5 * time.Minute
	// DefaultCapacity bounds the number of stored entries.
	DefaultCapacity = 100
)

// Entry pairs a cached outcome with its storage time.
type Entry struct {
	Fingerprint string
	Outcome     *request.Outcome
	StoredAt    time.Time
}

// Cache is a FIFO-evicting, TTL-expiring outcome store. All methods are
// safe for concurrent use; check-evict-insert happens under one lock so
// interleaved puts cannot lose updates.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	order    []string // insertion order, oldest first
	ttl      time.Duration
	capacity int
	now      func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithCapacity overrides the maximum entry count.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		c.capacity = n
	}
}

// WithClock injects the time source. Tests use this to advance time.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[string]*Entry),
		ttl:      DefaultTTL,
		capacity: DefaultCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the cached outcome for the fingerprint. Expired
// entries are deleted and reported as a miss.
func (c *Cache) Get(fingerprint string) (*request.Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[fingerprint]
	if !ok {
		return nil, false
	}

	if c.now().Sub(entry.StoredAt) > c.ttl {
		c.removeLocked(fingerprint)
		return nil, false
	}

	return entry.Outcome.Clone(), true
}

// Put stores a copy of the outcome. Failed outcomes are never cached so a
// transient condition is not masked on retry. At capacity the oldest
// insertion is evicted first.
func (c *Cache) Put(fingerprint string, outcome *request.Outcome) {
	if outcome == nil || !outcome.Success {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[fingerprint]; exists {
		c.removeLocked(fingerprint)
	}

	for len(c.entries) >= c.capacity && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[fingerprint] = &Entry{
		Fingerprint: fingerprint,
		Outcome:     outcome.Clone(),
		StoredAt:    c.now(),
	}
	c.order = append(c.order, fingerprint)
}

// Clear empties the store unconditionally.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*Entry)
	c.order = nil
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) removeLocked(fingerprint string) {
	delete(c.entries, fingerprint)
	for i, f := range c.order {
		if f == fingerprint {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Fingerprint derives a deterministic digest of the request's method,
// normalized URL, sorted header pairs, and body. Header insertion order
// does not affect the result.
func Fingerprint(req *request.Request) string {
	h := sha256.New()

	h.Write([]byte(req.Method))
	h.Write([]byte{0})
	h.Write([]byte(normalizeURL(req.URL)))
	h.Write([]byte{0})

	keys := make([]string, 0, len(req.Headers))
	for k := range req.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(strings.ToLower(k)))
		h.Write([]byte{':'})
		h.Write([]byte(req.Headers[k]))
		h.Write([]byte{0})
	}

	h.Write([]byte(req.RawBody))
	if len(req.Fields) > 0 {
		fkeys := make([]string, 0, len(req.Fields))
		for k := range req.Fields {
			fkeys = append(fkeys, k)
		}
		sort.Strings(fkeys)
		for _, k := range fkeys {
			h.Write([]byte{0})
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(req.Fields[k]))
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

// normalizeURL lowercases the scheme and host and drops default ports so
// structurally equal URLs fingerprint identically.
func normalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	host, port, found := strings.Cut(u.Host, ":")
	if found {
		if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
			u.Host = host
		}
	}

	return u.String()
}
