package processor

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// JSONProcessor handles application/json bodies.
type JSONProcessor struct{}

func NewJSONProcessor() *JSONProcessor {
	return &JSONProcessor{}
}

func (p *JSONProcessor) ContentType() string {
	return "application/json"
}

// Encode marshals the field map as a JSON object.
func (p *JSONProcessor) Encode(fields map[string]string) (string, map[string]string, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return "", nil, fmt.Errorf("encoding JSON body: %w", err)
	}
	return string(data), map[string]string{
		"Content-Type": p.ContentType(),
	}, nil
}

// Decode flattens a JSON object into string fields. Non-object or invalid
// JSON is reported as an error; the registry turns that into a verbatim
// raw-body result rather than a crash.
func (p *JSONProcessor) Decode(body string) (map[string]string, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("invalid JSON body")
	}

	parsed := gjson.Parse(body)
	if !parsed.IsObject() {
		return nil, fmt.Errorf("JSON body is not an object")
	}

	result := make(map[string]string)
	parsed.ForEach(func(key, value gjson.Result) bool {
		result[key.String()] = value.String()
		return true
	})
	return result, nil
}
