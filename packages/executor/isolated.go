package executor

import (
	"context"
	"net/http"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
)

// Isolated runs each request through a dedicated transport that is torn down
// when the call returns, whatever the exit path. It serves requests the
// pooled direct path would block on (non-simple methods, cross-origin).
type Isolated struct {
	timeout     time.Duration
	validateSSL bool
	proxyURL    string
}

type IsolatedOption func(*Isolated)

func NewIsolated(opts ...IsolatedOption) *Isolated {
	s := &Isolated{
		timeout:     DefaultTimeout,
		validateSSL: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func WithIsolatedTimeout(d time.Duration) IsolatedOption {
	return func(s *Isolated) {
		s.timeout = d
	}
}

func WithIsolatedValidateSSL(validate bool) IsolatedOption {
	return func(s *Isolated) {
		s.validateSSL = validate
	}
}

func WithIsolatedProxy(proxyURL string) IsolatedOption {
	return func(s *Isolated) {
		s.proxyURL = proxyURL
	}
}

func (s *Isolated) Name() string {
	return "isolated"
}

func (s *Isolated) Execute(ctx context.Context, req *request.Request) *request.Outcome {
	transport := newTransport(s.validateSSL, s.proxyURL, true)
	// The deferred teardown covers success, error, and timeout alike;
	// a leaked isolated context is a correctness bug.
	defer transport.CloseIdleConnections()

	timeout := s.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := &http.Client{Transport: transport}
	return perform(ctx, client, nil, req)
}
