package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/reqprobe/reqprobe/packages/executor"
	"github.com/reqprobe/reqprobe/packages/history"
	"github.com/reqprobe/reqprobe/packages/request"
)

// maxBodyPreview bounds how much response body the non-verbose view shows.
const maxBodyPreview = 200

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(f.writer, "%s\n\n", bold("reqprobe "+version))
}

func (f *ConsoleFormatter) FormatOutcome(req *request.Request, outcome *request.Outcome) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if outcome.Success {
		fmt.Fprintf(f.writer, "  %s %s %s %s %s\n",
			green("✓"), req.Method, req.URL,
			green(fmt.Sprintf("%d", outcome.Status)),
			cyan(fmt.Sprintf("(%dms)", outcome.DurationMs)))
	} else {
		fmt.Fprintf(f.writer, "  %s %s %s %s\n",
			red("✗"), req.Method, req.URL,
			red(fmt.Sprintf("%s: %s", outcome.ErrorKind, outcome.ErrorMessage)))
		return
	}

	if f.verbose {
		for k, v := range outcome.Headers {
			fmt.Fprintf(f.writer, "    %s: %s\n", k, v)
		}
		if outcome.Body != "" {
			fmt.Fprintf(f.writer, "    %s\n", outcome.Body)
		}
	} else if outcome.Body != "" {
		preview := outcome.Body
		if len(preview) > maxBodyPreview {
			preview = preview[:maxBodyPreview] + "..."
		}
		fmt.Fprintf(f.writer, "    %s\n", preview)
	}
}

func (f *ConsoleFormatter) FormatHistory(records []*history.Record) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if len(records) == 0 {
		fmt.Fprintf(f.writer, "No requests recorded.\n")
		return
	}

	for _, rec := range records {
		var status string
		switch rec.State {
		case history.StateCompleted:
			status = green(fmt.Sprintf("%d", rec.Outcome.Status))
		case history.StateFailed:
			status = red(string(rec.Outcome.ErrorKind))
		default:
			status = yellow("pending")
		}

		fmt.Fprintf(f.writer, "  %s  %-7s %s %s %s\n",
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.Request.Method,
			rec.Request.URL,
			status,
			cyan(rec.Request.ID))
	}
}

func (f *ConsoleFormatter) FormatSummary(summary executor.Summary) {
	bold := color.New(color.Bold).SprintFunc()

	fmt.Fprintf(f.writer, "\n%s\n", bold("Summary"))
	fmt.Fprintf(f.writer, "  Requests: %d (%d ok, %d failed, %d timed out)\n",
		summary.TotalRequests, summary.SuccessCount, summary.ErrorCount, summary.TimeoutCount)
	if summary.TotalRequests > 0 {
		fmt.Fprintf(f.writer, "  Success rate: %.1f%%\n", summary.SuccessRate*100)
		fmt.Fprintf(f.writer, "  Latency: p50=%s p95=%s p99=%s max=%s\n",
			summary.P50, summary.P95, summary.P99, summary.Max)
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("error:"), err)
}
