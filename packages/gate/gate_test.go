package gate

import (
	"strings"
	"testing"

	"github.com/reqprobe/reqprobe/packages/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *request.Request {
	return request.New("GET", "https://example.com/path")
}

func TestValidate_AcceptsPlainRequest(t *testing.T) {
	g := New()
	assert.NoError(t, g.Validate(validRequest()))
}

func TestValidate_URLScheme(t *testing.T) {
	g := New()

	tests := []struct {
		url   string
		valid bool
	}{
		{"https://example.com", true},
		{"http://example.com", true},
		{"ftp://example.com", false},
		{"file:///etc/passwd", false},
		{"javascript:alert(1)", false},
		{"example.com", false}, // relative, no scheme
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			req := validRequest()
			req.URL = tt.url
			err := g.Validate(req)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_HeaderValueCRLF(t *testing.T) {
	g := New()

	req := validRequest()
	req.SetHeader("User-Agent", "line1\r\nSet-Cookie: x=y")

	err := g.Validate(req)
	require.Error(t, err)

	var rejection *Rejection
	require.ErrorAs(t, err, &rejection)
	assert.Contains(t, rejection.Reason, "control characters")
}

func TestValidate_HeaderValueControlChars(t *testing.T) {
	g := New()

	req := validRequest()
	req.SetHeader("Accept", "text\x00plain")
	assert.Error(t, g.Validate(req))

	req = validRequest()
	req.SetHeader("Accept", "text\x7fplain")
	assert.Error(t, g.Validate(req))
}

func TestValidate_HeaderKeyPattern(t *testing.T) {
	g := New()

	req := validRequest()
	req.Headers["Bad Header"] = "x"
	assert.Error(t, g.Validate(req))
}

func TestValidate_HeaderAllowList(t *testing.T) {
	g := New()

	// Disallowed headers are rejected with the key named, not filtered.
	req := validRequest()
	req.SetHeader("X-Evil", "value")
	err := g.Validate(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "X-Evil")

	// Allow-listed headers pass regardless of case.
	req = validRequest()
	req.SetHeader("content-type", "application/json")
	req.SetHeader("Authorization", "Bearer token")
	assert.NoError(t, g.Validate(req))
}

func TestValidate_CustomAllowList(t *testing.T) {
	g := New(WithAllowedHeaders([]string{"X-Custom"}))

	req := validRequest()
	req.SetHeader("X-Custom", "ok")
	assert.NoError(t, g.Validate(req))

	req = validRequest()
	req.SetHeader("Accept", "text/plain")
	assert.Error(t, g.Validate(req))
}

func TestValidate_BodySizeCap(t *testing.T) {
	g := New(WithMaxBodySize(10))

	req := request.New("POST", "https://example.com")
	req.SetBody(strings.Repeat("a", 11))
	assert.Error(t, g.Validate(req))

	req = request.New("POST", "https://example.com")
	req.SetBody(strings.Repeat("a", 10))
	assert.NoError(t, g.Validate(req))
}

func TestValidate_DangerousPatterns(t *testing.T) {
	g := New()

	tests := []struct {
		name string
		body string
	}{
		{"script tag", `<script>alert(1)</script>`},
		{"javascript url", `click javascript:alert(1)`},
		{"data html", `data:text/html,<h1>x</h1>`},
		{"event handler", `<img onerror=alert(1)>`},
		{"eval call", `eval(atob("x"))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request.New("POST", "https://example.com")
			req.SetBody(tt.body)
			assert.Error(t, g.Validate(req))
		})
	}
}

func TestValidate_ScanWindowIsBounded(t *testing.T) {
	g := New()

	// A pattern past the scan window is intentionally not caught; the scan
	// is defense in depth, not a security boundary.
	req := request.New("POST", "https://example.com")
	req.SetBody(strings.Repeat("a", DefaultScanWindow) + "<script>")
	assert.NoError(t, g.Validate(req))
}

type noCapabilities struct{}

func (noCapabilities) Has(string) bool { return false }

func TestValidate_MissingCapability(t *testing.T) {
	g := New(WithCapabilities(noCapabilities{}))

	err := g.Validate(validRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "capability")
}

func TestValidate_NeverMutatesRequest(t *testing.T) {
	g := New()

	req := validRequest()
	req.SetHeader("Accept", "application/json")
	before := req.Clone()

	_ = g.Validate(req)

	assert.Equal(t, before.Headers, req.Headers)
	assert.Equal(t, before.URL, req.URL)
	assert.Equal(t, before.RawBody, req.RawBody)
}
