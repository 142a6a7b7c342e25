package executor

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirect_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"message": "hello"}`))
	}))
	defer server.Close()

	d := NewDirect()
	req := request.New("GET", server.URL)

	outcome := d.Execute(context.Background(), req)

	require.True(t, outcome.Success)
	assert.Equal(t, 200, outcome.Status)
	assert.Equal(t, "application/json", outcome.Header("Content-Type"))
	assert.Contains(t, outcome.Body, "hello")
	assert.Equal(t, req.ID, outcome.RequestID)
}

func TestDirect_SendsBodyAndHeaders(t *testing.T) {
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	d := NewDirect()
	req := request.New("POST", server.URL).
		SetHeader("Content-Type", "application/json").
		SetBody(`{"a":"1"}`)

	outcome := d.Execute(context.Background(), req)

	require.True(t, outcome.Success)
	assert.Equal(t, 201, outcome.Status)
	assert.Equal(t, `{"a":"1"}`, string(gotBody))
}

func TestDirect_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	d := NewDirect()
	req := request.New("GET", server.URL).SetTimeout(50 * time.Millisecond)

	start := time.Now()
	outcome := d.Execute(context.Background(), req)
	elapsed := time.Since(start)

	require.False(t, outcome.Success)
	assert.Equal(t, request.ErrorKindTimeout, outcome.ErrorKind)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

func TestDirect_NetworkError(t *testing.T) {
	d := NewDirect()
	// Closed port: connection refused.
	req := request.New("GET", "http://127.0.0.1:1")

	outcome := d.Execute(context.Background(), req)

	require.False(t, outcome.Success)
	assert.Equal(t, request.ErrorKindNetwork, outcome.ErrorKind)
	assert.NotEmpty(t, outcome.ErrorMessage)
}

func TestDirect_NoFollowRedirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer server.Close()

	d := NewDirect(WithFollowRedirects(false))
	outcome := d.Execute(context.Background(), request.New("GET", server.URL))

	require.True(t, outcome.Success)
	assert.Equal(t, 302, outcome.Status)
}

func TestIsolated_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DELETE", r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s := NewIsolated()
	outcome := s.Execute(context.Background(), request.New("DELETE", server.URL))

	require.True(t, outcome.Success)
	assert.Equal(t, 204, outcome.Status)
}

func TestIsolated_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	s := NewIsolated()
	req := request.New("PUT", server.URL).SetTimeout(50 * time.Millisecond)

	outcome := s.Execute(context.Background(), req)

	require.False(t, outcome.Success)
	assert.Equal(t, request.ErrorKindTimeout, outcome.ErrorKind)
}

func TestSelector(t *testing.T) {
	direct := NewDirect()
	isolated := NewIsolated()
	s := NewSelector(direct, isolated)

	tests := []struct {
		method      string
		crossOrigin bool
		want        Strategy
	}{
		{"GET", false, direct},
		{"POST", false, direct},
		{"PUT", false, isolated},
		{"DELETE", false, isolated},
		{"PATCH", false, isolated},
		{"HEAD", false, isolated},
		{"OPTIONS", false, isolated},
		{"GET", true, isolated},
		{"POST", true, isolated},
	}

	for _, tt := range tests {
		req := &request.Request{Method: tt.method, CrossOrigin: tt.crossOrigin}
		assert.Same(t, tt.want, s.Select(req), "method=%s crossOrigin=%v", tt.method, tt.crossOrigin)
	}
}

func TestSelector_ReusesStrategyInstances(t *testing.T) {
	s := NewSelector(NewDirect(), NewIsolated())

	first := s.Select(&request.Request{Method: "GET"})
	second := s.Select(&request.Request{Method: "GET"})
	assert.Same(t, first, second)
}

func TestBatch_PreservesInputOrder(t *testing.T) {
	b := NewBatch(WithWindowSize(2))

	reqs := []*request.Request{
		request.New("GET", "https://example.com/a"),
		request.New("GET", "https://example.com/b"),
		request.New("GET", "https://example.com/c"),
	}

	fn := func(ctx context.Context, req *request.Request) *request.Outcome {
		if req.URL == "https://example.com/b" {
			return request.FailureOutcome(req.ID, request.ErrorKindNetwork, "boom")
		}
		return request.SuccessOutcome(req.ID, 200, nil, "", time.Millisecond)
	}

	outcomes := b.ExecuteBatch(context.Background(), reqs, fn)

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.True(t, outcomes[2].Success)
	for i := range reqs {
		assert.Equal(t, reqs[i].ID, outcomes[i].RequestID)
	}
}

func TestBatch_BoundsConcurrency(t *testing.T) {
	const window = 3
	b := NewBatch(WithWindowSize(window))

	var active, peak atomic.Int32
	fn := func(ctx context.Context, req *request.Request) *request.Outcome {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return request.SuccessOutcome(req.ID, 200, nil, "", time.Millisecond)
	}

	reqs := make([]*request.Request, 10)
	for i := range reqs {
		reqs[i] = request.New("GET", "https://example.com")
	}

	outcomes := b.ExecuteBatch(context.Background(), reqs, fn)

	assert.Len(t, outcomes, 10)
	assert.LessOrEqual(t, peak.Load(), int32(window))
}

func TestMetrics_Summary(t *testing.T) {
	m := NewMetrics()

	m.Record(request.SuccessOutcome("a", 200, nil, "", 10*time.Millisecond))
	m.Record(request.SuccessOutcome("b", 201, nil, "", 20*time.Millisecond))
	m.Record(request.FailureOutcome("c", request.ErrorKindTimeout, "deadline"))
	m.Record(request.FailureOutcome("d", request.ErrorKindNetwork, "refused"))

	summary := m.GetSummary()

	assert.Equal(t, int64(4), summary.TotalRequests)
	assert.Equal(t, int64(2), summary.SuccessCount)
	assert.Equal(t, int64(2), summary.ErrorCount)
	assert.Equal(t, int64(1), summary.TimeoutCount)
	assert.InDelta(t, 0.5, summary.SuccessRate, 0.001)
	assert.Greater(t, summary.P99, time.Duration(0))
}
