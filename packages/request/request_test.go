package request

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsIDAndCreatedAt(t *testing.T) {
	req := New("GET", "https://example.com")

	assert.NotEmpty(t, req.ID)
	assert.False(t, req.CreatedAt.IsZero())
	assert.Equal(t, "GET", req.Method)
}

func TestNormalize_PreservesExistingID(t *testing.T) {
	req := &Request{ID: "fixed", Method: "GET", URL: "https://example.com"}
	req.Normalize()

	assert.Equal(t, "fixed", req.ID)
	assert.False(t, req.CreatedAt.IsZero())
}

func TestValidateMethod(t *testing.T) {
	tests := []struct {
		method string
		valid  bool
	}{
		{"GET", true},
		{"POST", true},
		{"PUT", true},
		{"DELETE", true},
		{"PATCH", true},
		{"HEAD", true},
		{"OPTIONS", true},
		{"TRACE", false},
		{"get", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			req := &Request{Method: tt.method}
			err := req.ValidateMethod()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestAllowsBody(t *testing.T) {
	assert.False(t, (&Request{Method: "GET"}).AllowsBody())
	assert.False(t, (&Request{Method: "HEAD"}).AllowsBody())
	assert.True(t, (&Request{Method: "POST"}).AllowsBody())
	assert.True(t, (&Request{Method: "DELETE"}).AllowsBody())
}

func TestHasBody(t *testing.T) {
	assert.False(t, (&Request{}).HasBody())
	assert.True(t, (&Request{RawBody: "x"}).HasBody())
	assert.True(t, (&Request{Fields: map[string]string{"a": "1"}}).HasBody())
}

func TestClone_Independence(t *testing.T) {
	req := New("POST", "https://example.com").
		SetHeader("Accept", "application/json").
		SetField("a", "1").
		SetTimeout(5 * time.Second)

	clone := req.Clone()
	require.NotNil(t, clone)

	clone.Headers["Accept"] = "text/plain"
	clone.Fields["a"] = "2"
	clone.URL = "https://other.example.com"

	assert.Equal(t, "application/json", req.Headers["Accept"])
	assert.Equal(t, "1", req.Fields["a"])
	assert.Equal(t, "https://example.com", req.URL)
	assert.Equal(t, 5*time.Second, clone.Timeout)
}

func TestOutcome_Constructors(t *testing.T) {
	ok := SuccessOutcome("id-1", 200, map[string]string{"X": "y"}, "body", 120*time.Millisecond)
	assert.True(t, ok.Success)
	assert.Equal(t, 200, ok.Status)
	assert.Equal(t, int64(120), ok.DurationMs)
	assert.Equal(t, ErrorKindNone, ok.ErrorKind)

	fail := FailureOutcome("id-2", ErrorKindTimeout, "deadline exceeded")
	assert.False(t, fail.Success)
	assert.Zero(t, fail.Status)
	assert.True(t, fail.IsTimeout())
	assert.Equal(t, "deadline exceeded", fail.ErrorMessage)
}

func TestOutcome_HeaderLookupIsCaseInsensitive(t *testing.T) {
	o := SuccessOutcome("id", 200, map[string]string{"Content-Type": "text/plain"}, "", 0)
	assert.Equal(t, "text/plain", o.Header("content-type"))
	assert.Empty(t, o.Header("Missing"))
}

func TestOutcome_CloneIndependence(t *testing.T) {
	o := SuccessOutcome("id", 200, map[string]string{"X": "1"}, "body", 0)
	clone := o.Clone()
	clone.Headers["X"] = "2"

	assert.Equal(t, "1", o.Headers["X"])
}
