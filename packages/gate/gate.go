// Package gate validates candidate requests against policy before any
// network action is taken.
package gate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/reqprobe/reqprobe/packages/request"
)

const (
	// DefaultMaxBodySize is the largest accepted body in bytes.
	DefaultMaxBodySize = 100_000
	// DefaultScanWindow is how many leading body bytes the heuristic
	// pattern scan inspects.
	DefaultScanWindow = 1000
	// NetworkCapability is the capability consulted before any request
	// is allowed to reach the network.
	NetworkCapability = "network"
)

var headerKeyPattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// defaultAllowedHeaders is the header allow-list. Requests naming any
// other header are rejected outright rather than silently filtered.
var defaultAllowedHeaders = []string{
	"Content-Type",
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
	"Cache-Control",
	"Referer",
	"Authorization",
}

// dangerousPatterns is a best-effort denylist scanned against the start of
// textual bodies. It is defense in depth, not a security boundary.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)data:text/html`),
	regexp.MustCompile(`(?i)on\w+=`),
	regexp.MustCompile(`(?i)eval\(`),
}

// Capabilities reports whether the host environment granted a named
// capability. Absence is a rejection, never a crash.
type Capabilities interface {
	Has(name string) bool
}

// AllCapabilities grants everything. Useful default outside sandboxes.
type AllCapabilities struct{}

func (AllCapabilities) Has(string) bool { return true }

// Rejection is the error returned for requests that fail policy.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(format string, args ...any) error {
	return &Rejection{Reason: fmt.Sprintf(format, args...)}
}

// Gate is a pure validator; it never mutates the request and has no side
// effects. A zero-config gate uses the package defaults.
type Gate struct {
	maxBodySize    int
	scanWindow     int
	allowedHeaders map[string]bool
	capabilities   Capabilities
}

// Option configures a Gate.
type Option func(*Gate)

// WithMaxBodySize overrides the body size cap.
func WithMaxBodySize(n int) Option {
	return func(g *Gate) {
		g.maxBodySize = n
	}
}

// WithAllowedHeaders replaces the header allow-list.
func WithAllowedHeaders(headers []string) Option {
	return func(g *Gate) {
		g.allowedHeaders = make(map[string]bool, len(headers))
		for _, h := range headers {
			g.allowedHeaders[strings.ToLower(h)] = true
		}
	}
}

// WithCapabilities sets the capability checker.
func WithCapabilities(c Capabilities) Option {
	return func(g *Gate) {
		g.capabilities = c
	}
}

func New(opts ...Option) *Gate {
	g := &Gate{
		maxBodySize:  DefaultMaxBodySize,
		scanWindow:   DefaultScanWindow,
		capabilities: AllCapabilities{},
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.allowedHeaders == nil {
		g.allowedHeaders = make(map[string]bool, len(defaultAllowedHeaders))
		for _, h := range defaultAllowedHeaders {
			g.allowedHeaders[strings.ToLower(h)] = true
		}
	}

	return g
}

// Validate runs the policy checks in order and returns the first failure
// as a *Rejection. A nil return means the request may proceed.
func (g *Gate) Validate(req *request.Request) error {
	if err := g.checkURL(req.URL); err != nil {
		return err
	}
	if err := g.checkHeaders(req.Headers); err != nil {
		return err
	}
	if err := g.checkBody(req); err != nil {
		return err
	}
	if !g.capabilities.Has(NetworkCapability) {
		return reject("missing required capability: %s", NetworkCapability)
	}
	return nil
}

func (g *Gate) checkURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return reject("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return reject("unsupported URL scheme: %q (only http and https are allowed)", u.Scheme)
	}
	if u.Host == "" {
		return reject("URL must have a host")
	}
	return nil
}

func (g *Gate) checkHeaders(headers map[string]string) error {
	for key, value := range headers {
		if !headerKeyPattern.MatchString(key) {
			return reject("invalid header name: %q", key)
		}
		if !g.allowedHeaders[strings.ToLower(key)] {
			return reject("header not allowed: %q", key)
		}
		if containsControlChars(value) {
			return reject("header %q value contains control characters", key)
		}
	}
	return nil
}

func (g *Gate) checkBody(req *request.Request) error {
	body := req.RawBody
	if body == "" && len(req.Fields) > 0 {
		parts := make([]string, 0, len(req.Fields))
		for _, v := range req.Fields {
			parts = append(parts, v)
		}
		body = strings.Join(parts, "&")
	}
	if len(body) > g.maxBodySize {
		return reject("body size %d exceeds maximum %d", len(body), g.maxBodySize)
	}

	window := body
	if len(window) > g.scanWindow {
		window = window[:g.scanWindow]
	}
	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(window) {
			return reject("body matches blocked pattern: %s", pattern.String())
		}
	}
	return nil
}

// containsControlChars reports whether s holds any C0 control byte or DEL.
// Raw CR/LF in header values would allow response splitting.
func containsControlChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7F {
			return true
		}
	}
	return false
}
