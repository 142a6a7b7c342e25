package request

import (
	"strings"
	"time"
)

// ErrorKind classifies a failed execution.
type ErrorKind string

const (
	ErrorKindNone       ErrorKind = ""
	ErrorKindTimeout    ErrorKind = "timeout"
	ErrorKindNetwork    ErrorKind = "network_error"
	ErrorKindValidation ErrorKind = "validation_error"
	ErrorKindUnknown    ErrorKind = "unknown"
)

// Outcome is the result of one execution attempt. It is built once and
// never mutated; a retry produces a fresh Outcome.
type Outcome struct {
	RequestID    string
	Success      bool
	Status       int
	Headers      map[string]string
	Body         string
	ErrorKind    ErrorKind
	ErrorMessage string
	DurationMs   int64
}

// SuccessOutcome builds a successful outcome from a completed response.
func SuccessOutcome(requestID string, status int, headers map[string]string, body string, duration time.Duration) *Outcome {
	return &Outcome{
		RequestID:  requestID,
		Success:    true,
		Status:     status,
		Headers:    headers,
		Body:       body,
		DurationMs: duration.Milliseconds(),
	}
}

// FailureOutcome builds a failed outcome of the given kind. Failed outcomes
// never carry a status code.
func FailureOutcome(requestID string, kind ErrorKind, message string) *Outcome {
	return &Outcome{
		RequestID:    requestID,
		ErrorKind:    kind,
		ErrorMessage: message,
	}
}

func (o *Outcome) IsTimeout() bool {
	return o.ErrorKind == ErrorKindTimeout
}

func (o *Outcome) IsRejected() bool {
	return o.ErrorKind == ErrorKindValidation
}

func (o *Outcome) Header(key string) string {
	for k, v := range o.Headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// Clone returns a deep copy so stores can hand out results without
// sharing their internal maps.
func (o *Outcome) Clone() *Outcome {
	if o == nil {
		return nil
	}
	c := *o
	if o.Headers != nil {
		c.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			c.Headers[k] = v
		}
	}
	return &c
}
