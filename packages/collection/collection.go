// Package collection loads request collections from JSON or YAML files and
// validates them against a schema before they reach the pipeline.
package collection

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reqprobe/reqprobe/packages/request"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// schema describes a collection file: an array of request descriptors.
const schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["method", "url"],
    "additionalProperties": false,
    "properties": {
      "id":          {"type": "string"},
      "method":      {"type": "string", "enum": ["GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"]},
      "url":         {"type": "string", "minLength": 1},
      "headers":     {"type": "object", "additionalProperties": {"type": "string"}},
      "body":        {"type": "string"},
      "fields":      {"type": "object", "additionalProperties": {"type": "string"}},
      "contentType": {"type": "string"},
      "crossOrigin": {"type": "boolean"},
      "timeoutMs":   {"type": "integer", "minimum": 1}
    }
  }
}`

// Item is one request descriptor as written in a collection file.
type Item struct {
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Method      string            `json:"method" yaml:"method"`
	URL         string            `json:"url" yaml:"url"`
	Headers     map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body        string            `json:"body,omitempty" yaml:"body,omitempty"`
	Fields      map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
	ContentType string            `json:"contentType,omitempty" yaml:"contentType,omitempty"`
	CrossOrigin bool              `json:"crossOrigin,omitempty" yaml:"crossOrigin,omitempty"`
	TimeoutMs   int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
}

// ToRequest converts the file entry into a pipeline request descriptor.
func (i *Item) ToRequest() *request.Request {
	req := &request.Request{
		ID:          i.ID,
		Method:      i.Method,
		URL:         i.URL,
		Headers:     i.Headers,
		RawBody:     i.Body,
		Fields:      i.Fields,
		ContentType: i.ContentType,
		CrossOrigin: i.CrossOrigin,
	}
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	if i.TimeoutMs > 0 {
		req.Timeout = time.Duration(i.TimeoutMs) * time.Millisecond
	}
	return req
}

// Load reads a collection file, validates it against the schema, and returns
// the requests in file order.
func Load(path string) ([]*request.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read collection %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) ([]*request.Request, error) {
	if err := validate(gojsonschema.NewBytesLoader(data)); err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid collection JSON: %w", err)
	}
	return toRequests(items), nil
}

func parseYAML(data []byte) ([]*request.Request, error) {
	// Decode to a generic document first so the schema sees the same shape
	// it would for JSON.
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid collection YAML: %w", err)
	}
	if err := validate(gojsonschema.NewGoLoader(doc)); err != nil {
		return nil, err
	}

	var items []Item
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid collection YAML: %w", err)
	}
	return toRequests(items), nil
}

func validate(document gojsonschema.JSONLoader) error {
	result, err := gojsonschema.Validate(gojsonschema.NewStringLoader(schema), document)
	if err != nil {
		return fmt.Errorf("collection validation failed: %w", err)
	}
	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}
		return fmt.Errorf("invalid collection: %s", strings.Join(messages, "; "))
	}
	return nil
}

func toRequests(items []Item) []*request.Request {
	reqs := make([]*request.Request, len(items))
	for i := range items {
		reqs[i] = items[i].ToRequest()
	}
	return reqs
}
