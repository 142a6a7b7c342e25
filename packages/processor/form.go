package processor

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// FormProcessor handles application/x-www-form-urlencoded bodies.
type FormProcessor struct {
	// PlusForSpace encodes spaces as '+' instead of %20.
	PlusForSpace bool
}

func NewFormProcessor() *FormProcessor {
	return &FormProcessor{PlusForSpace: true}
}

func (p *FormProcessor) ContentType() string {
	return "application/x-www-form-urlencoded"
}

// Encode percent-encodes the fields into key=value pairs joined by '&'.
// Keys are sorted so the output is deterministic.
func (p *FormProcessor) Encode(fields map[string]string) (string, map[string]string, error) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, p.escape(k)+"="+p.escape(fields[k]))
	}

	return strings.Join(pairs, "&"), map[string]string{
		"Content-Type": p.ContentType(),
	}, nil
}

func (p *FormProcessor) escape(s string) string {
	if p.PlusForSpace {
		return url.QueryEscape(s)
	}
	return url.PathEscape(s)
}

// Decode splits the body into key=value pairs, unescaping both sides.
func (p *FormProcessor) Decode(body string) (map[string]string, error) {
	if body == "" {
		return map[string]string{}, nil
	}

	result := make(map[string]string)
	for _, pair := range strings.Split(body, "&") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("malformed pair: %q", pair)
		}
		key, err := url.QueryUnescape(kv[0])
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(kv[1])
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}
