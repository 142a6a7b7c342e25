package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func successOutcome(id string) *request.Outcome {
	return request.SuccessOutcome(id, 200, map[string]string{"Content-Type": "text/plain"}, "ok", 10*time.Millisecond)
}

func TestFingerprint_HeaderOrderIndependent(t *testing.T) {
	a := request.New("GET", "https://example.com")
	a.SetHeader("Accept", "application/json")
	a.SetHeader("Cache-Control", "no-cache")

	b := request.New("GET", "https://example.com")
	b.SetHeader("Cache-Control", "no-cache")
	b.SetHeader("Accept", "application/json")

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprint_SensitiveToParts(t *testing.T) {
	base := request.New("GET", "https://example.com")

	method := base.Clone()
	method.Method = "POST"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(method))

	url := base.Clone()
	url.URL = "https://example.com/other"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(url))

	body := base.Clone()
	body.RawBody = "payload"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(body))

	header := base.Clone()
	header.SetHeader("Accept", "text/plain")
	assert.NotEqual(t, Fingerprint(base), Fingerprint(header))
}

func TestFingerprint_NormalizesURL(t *testing.T) {
	a := request.New("GET", "https://Example.COM:443/path")
	b := request.New("GET", "https://example.com/path")

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestCache_RoundTrip(t *testing.T) {
	c := New()

	c.Put("fp", successOutcome("req-1"))
	got, ok := c.Get("fp")

	require.True(t, ok)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, 200, got.Status)
}

func TestCache_MissForUnknownFingerprint(t *testing.T) {
	c := New()
	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestCache_TTLExpiry(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	c := New(WithTTL(5*time.Minute), WithClock(clock))

	c.Put("fp", successOutcome("req-1"))

	_, ok := c.Get("fp")
	assert.True(t, ok)

	now = now.Add(5*time.Minute + time.Second)
	_, ok = c.Get("fp")
	assert.False(t, ok)
	// Expired entries are deleted on read.
	assert.Equal(t, 0, c.Len())
}

func TestCache_FIFOEviction(t *testing.T) {
	c := New(WithCapacity(3))

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("fp-%d", i), successOutcome(fmt.Sprintf("req-%d", i)))
	}

	assert.Equal(t, 3, c.Len())
	_, ok := c.Get("fp-0")
	assert.False(t, ok, "first inserted entry should be evicted")
	for i := 1; i < 4; i++ {
		_, ok := c.Get(fmt.Sprintf("fp-%d", i))
		assert.True(t, ok)
	}
}

func TestCache_FailedOutcomesNotCached(t *testing.T) {
	c := New()

	c.Put("fp", request.FailureOutcome("req-1", request.ErrorKindNetwork, "connection refused"))
	_, ok := c.Get("fp")
	assert.False(t, ok)

	c.Put("fp", nil)
	_, ok = c.Get("fp")
	assert.False(t, ok)
}

func TestCache_ClearIsIdempotent(t *testing.T) {
	c := New()
	c.Put("fp", successOutcome("req-1"))

	c.Clear()
	c.Clear()

	_, ok := c.Get("fp")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_ValueCopySemantics(t *testing.T) {
	c := New()
	original := successOutcome("req-1")

	c.Put("fp", original)
	original.Headers["Content-Type"] = "mutated"

	got, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "text/plain", got.Headers["Content-Type"])

	// Mutating what Get returned never touches the stored entry.
	got.Headers["Content-Type"] = "mutated-again"
	again, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "text/plain", again.Headers["Content-Type"])
}

func TestCache_PutSameFingerprintRefreshes(t *testing.T) {
	c := New(WithCapacity(2))

	c.Put("fp", successOutcome("req-1"))
	c.Put("fp", successOutcome("req-2"))

	assert.Equal(t, 1, c.Len())
	got, ok := c.Get("fp")
	require.True(t, ok)
	assert.Equal(t, "req-2", got.RequestID)
}
