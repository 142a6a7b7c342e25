package executor

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
)

const (
	// DefaultTimeout is the default execution timeout per request
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Direct issues the network call straight through a pooled transport. It is
// built once and reused for every request it executes.
type Direct struct {
	httpClient     *http.Client
	timeout        time.Duration
	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	defaultHeaders map[string]string
}

type DirectOption func(*Direct)

func NewDirect(opts ...DirectOption) *Direct {
	d := &Direct{
		timeout:        DefaultTimeout,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		defaultHeaders: make(map[string]string),
	}

	for _, opt := range opts {
		opt(d)
	}

	d.httpClient = &http.Client{
		Transport: newTransport(d.validateSSL, d.proxyURL, false),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !d.followRedirect {
				return http.ErrUseLastResponse
			}
			if len(via) >= d.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return d
}

func WithTimeout(d time.Duration) DirectOption {
	return func(s *Direct) {
		s.timeout = d
	}
}

func WithFollowRedirects(follow bool) DirectOption {
	return func(s *Direct) {
		s.followRedirect = follow
	}
}

func WithMaxRedirects(max int) DirectOption {
	return func(s *Direct) {
		s.maxRedirects = max
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) DirectOption {
	return func(s *Direct) {
		s.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) DirectOption {
	return func(s *Direct) {
		s.proxyURL = proxyURL
	}
}

// WithDefaultHeaders sets headers applied to every request before the
// request's own headers.
func WithDefaultHeaders(headers map[string]string) DirectOption {
	return func(s *Direct) {
		for k, v := range headers {
			s.defaultHeaders[k] = v
		}
	}
}

func (d *Direct) Name() string {
	return "direct"
}

func (d *Direct) Execute(ctx context.Context, req *request.Request) *request.Outcome {
	timeout := d.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return perform(ctx, d.httpClient, d.defaultHeaders, req)
}

// newTransport builds an HTTP transport. Isolated executions disable
// keep-alives so no connection outlives the call.
func newTransport(validateSSL bool, proxyURL string, disableKeepAlives bool) *http.Transport {
	transport := &http.Transport{
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DisableKeepAlives:   disableKeepAlives,
	}

	if !validateSSL {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if proxyURL != "" {
		if proxy, err := neturl.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(proxy)
		}
	}

	return transport
}

// perform runs one request through the given client and folds every failure
// into the outcome. It never returns nil.
func perform(ctx context.Context, client *http.Client, defaultHeaders map[string]string, req *request.Request) *request.Outcome {
	var body io.Reader
	if req.RawBody != "" {
		body = strings.NewReader(req.RawBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return request.FailureOutcome(req.ID, request.ErrorKindNetwork, err.Error())
	}

	for k, v := range defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return transportFailure(req.ID, err, duration)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return transportFailure(req.ID, err, time.Since(start))
	}

	headers := make(map[string]string, len(httpResp.Header))
	for k := range httpResp.Header {
		headers[k] = httpResp.Header.Get(k)
	}

	return request.SuccessOutcome(req.ID, httpResp.StatusCode, headers, string(respBody), duration)
}

// transportFailure classifies a transport error: deadline or cancellation
// becomes a timeout, everything else a network error with the underlying
// message preserved.
func transportFailure(requestID string, err error, duration time.Duration) *request.Outcome {
	kind := request.ErrorKindNetwork
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		kind = request.ErrorKindTimeout
	}

	outcome := request.FailureOutcome(requestID, kind, err.Error())
	outcome.DurationMs = duration.Milliseconds()
	return outcome
}
