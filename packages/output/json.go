package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/reqprobe/reqprobe/packages/executor"
	"github.com/reqprobe/reqprobe/packages/history"
	"github.com/reqprobe/reqprobe/packages/request"
)

// JSONOutcome is one executed request in machine-readable form.
type JSONOutcome struct {
	RequestID    string            `json:"requestId"`
	Method       string            `json:"method"`
	URL          string            `json:"url"`
	Success      bool              `json:"success"`
	Status       int               `json:"status,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	Body         string            `json:"body,omitempty"`
	ErrorKind    string            `json:"errorKind,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	DurationMs   int64             `json:"durationMs"`
}

// JSONSummary mirrors the executor metrics summary.
type JSONSummary struct {
	Total       int64   `json:"total"`
	Success     int64   `json:"success"`
	Errors      int64   `json:"errors"`
	Timeouts    int64   `json:"timeouts"`
	SuccessRate float64 `json:"successRate"`
	P50Ms       float64 `json:"p50Ms"`
	P95Ms       float64 `json:"p95Ms"`
	P99Ms       float64 `json:"p99Ms"`
}

// JSONOutput is the complete document the formatter flushes.
type JSONOutput struct {
	Outcomes []JSONOutcome `json:"outcomes"`
	Summary  *JSONSummary  `json:"summary,omitempty"`
	Time     string        `json:"time"`
}

// JSONFormatter accumulates outcomes and writes one document on Flush.
type JSONFormatter struct {
	writer   io.Writer
	outcomes []JSONOutcome
	summary  *JSONSummary
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer:   os.Stdout,
		outcomes: make([]JSONOutcome, 0),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatOutcome(req *request.Request, outcome *request.Outcome) {
	f.outcomes = append(f.outcomes, JSONOutcome{
		RequestID:    outcome.RequestID,
		Method:       req.Method,
		URL:          req.URL,
		Success:      outcome.Success,
		Status:       outcome.Status,
		Headers:      outcome.Headers,
		Body:         outcome.Body,
		ErrorKind:    string(outcome.ErrorKind),
		ErrorMessage: outcome.ErrorMessage,
		DurationMs:   outcome.DurationMs,
	})
}

func (f *JSONFormatter) FormatSummary(summary executor.Summary) {
	f.summary = &JSONSummary{
		Total:       summary.TotalRequests,
		Success:     summary.SuccessCount,
		Errors:      summary.ErrorCount,
		Timeouts:    summary.TimeoutCount,
		SuccessRate: summary.SuccessRate,
		P50Ms:       float64(summary.P50.Microseconds()) / 1000,
		P95Ms:       float64(summary.P95.Microseconds()) / 1000,
		P99Ms:       float64(summary.P99.Microseconds()) / 1000,
	}
}

// Flush writes the accumulated document.
func (f *JSONFormatter) Flush() error {
	doc := JSONOutput{
		Outcomes: f.outcomes,
		Summary:  f.summary,
		Time:     time.Now().Format(time.RFC3339),
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// WriteHistory writes history records as a JSON array.
func (f *JSONFormatter) WriteHistory(records []*history.Record) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(records)
}
