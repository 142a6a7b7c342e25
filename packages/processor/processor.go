// Package processor provides content-type specific body encoders and
// decoders behind a string-keyed registry with a default fallback.
package processor

import (
	"fmt"

	"github.com/reqprobe/reqprobe/packages/request"
)

// Processor encodes a field map into a wire body and decodes one back.
// Implementations are pure: no network or storage side effects.
type Processor interface {
	ContentType() string
	Encode(fields map[string]string) (body string, headers map[string]string, err error)
	Decode(body string) (map[string]string, error)
}

// RawKey is the field name decoded bodies fall back to when the processor
// cannot parse the input.
const RawKey = "_raw"

// Registry maps content types to processors. The last registration for a
// given content type wins. Lookups that miss fall back to the default
// processor, so Get never returns nil.
type Registry struct {
	processors map[string]Processor
	fallback   Processor
}

// NewRegistry creates a registry with the built-in processors registered
// and form-urlencoded as the default.
func NewRegistry() *Registry {
	r := &Registry{
		processors: make(map[string]Processor),
	}

	form := NewFormProcessor()
	r.Register(form)
	r.Register(NewJSONProcessor())
	r.Register(NewMultipartProcessor())
	r.fallback = form

	return r
}

// Register adds or replaces the processor for its content type.
func (r *Registry) Register(p Processor) {
	r.processors[p.ContentType()] = p
}

// SetDefault designates the fallback processor for unknown content types.
func (r *Registry) SetDefault(p Processor) {
	r.fallback = p
}

// Get returns the processor for the content type, or the default.
// Parameters such as charset are ignored for the lookup.
func (r *Registry) Get(contentType string) Processor {
	if p, ok := r.processors[contentType]; ok {
		return p
	}
	if p, ok := r.processors[ParseContentType(contentType)]; ok {
		return p
	}
	return r.fallback
}

// Encode builds the body for a request from its field map. When the
// request carries a raw body instead of fields, the raw body is returned
// untouched with only the content-type header set. A nil field map with no
// raw body is a validation failure; encode is never reached.
func (r *Registry) Encode(req *request.Request) (string, map[string]string, error) {
	p := r.Get(req.ContentType)

	if req.RawBody != "" {
		headers := map[string]string{}
		if req.ContentType != "" {
			headers["Content-Type"] = req.ContentType
		}
		return req.RawBody, headers, nil
	}

	if req.Fields == nil {
		return "", nil, fmt.Errorf("request %s has no body fields to encode", req.ID)
	}

	return p.Encode(req.Fields)
}

// Decode parses a body according to its content type. It never fails:
// input the processor cannot parse comes back verbatim under RawKey.
func (r *Registry) Decode(contentType, body string) map[string]string {
	fields, err := r.Get(contentType).Decode(body)
	if err != nil || fields == nil {
		return map[string]string{RawKey: body}
	}
	return fields
}
