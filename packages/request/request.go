// Package request defines the request descriptor and execution outcome
// types shared by every stage of the execution pipeline.
package request

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Methods accepted by the pipeline.
var validMethods = map[string]bool{
	"GET":     true,
	"POST":    true,
	"PUT":     true,
	"DELETE":  true,
	"PATCH":   true,
	"HEAD":    true,
	"OPTIONS": true,
}

// Request describes a single user-authored HTTP request. It is treated as
// immutable once submitted; components that need to keep one take a Clone.
type Request struct {
	ID          string
	Method      string
	URL         string
	Headers     map[string]string
	RawBody     string
	Fields      map[string]string
	ContentType string
	CrossOrigin bool
	Timeout     time.Duration
	CreatedAt   time.Time
}

func New(method, requestURL string) *Request {
	return &Request{
		ID:        uuid.NewString(),
		Method:    method,
		URL:       requestURL,
		Headers:   make(map[string]string),
		CreatedAt: time.Now(),
	}
}

func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

func (r *Request) SetBody(body string) *Request {
	r.RawBody = body
	return r
}

func (r *Request) SetField(key, value string) *Request {
	if r.Fields == nil {
		r.Fields = make(map[string]string)
	}
	r.Fields[key] = value
	return r
}

func (r *Request) SetContentType(ct string) *Request {
	r.ContentType = ct
	return r
}

func (r *Request) SetTimeout(d time.Duration) *Request {
	r.Timeout = d
	return r
}

// Normalize assigns an ID and creation time if the caller left them unset.
func (r *Request) Normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}

// HasBody reports whether the descriptor carries any body material,
// raw or field-based.
func (r *Request) HasBody() bool {
	return r.RawBody != "" || len(r.Fields) > 0
}

// AllowsBody reports whether the method may carry a body. GET and HEAD
// requests must be body-free.
func (r *Request) AllowsBody() bool {
	return r.Method != "GET" && r.Method != "HEAD"
}

// ValidateMethod checks the method against the supported set.
func (r *Request) ValidateMethod() error {
	if !validMethods[r.Method] {
		return fmt.Errorf("unsupported method: %q", r.Method)
	}
	return nil
}

// Clone returns a deep copy. Cache and history hold clones so that their
// eviction or pruning can never touch an in-flight request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Headers != nil {
		c.Headers = make(map[string]string, len(r.Headers))
		for k, v := range r.Headers {
			c.Headers[k] = v
		}
	}
	if r.Fields != nil {
		c.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}
