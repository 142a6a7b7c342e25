package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/reqprobe/reqprobe/packages/collection"
	"github.com/reqprobe/reqprobe/packages/core/config"
	"github.com/reqprobe/reqprobe/packages/core/engine"
	"github.com/reqprobe/reqprobe/packages/output"
	"github.com/spf13/cobra"
)

var batchCmd = &cobra.Command{
	Use:   "batch <collection-file>",
	Short: "Submit a request collection in bounded concurrent windows",
	Long: `Submit every request in a JSON or YAML collection file. Requests run
in fixed-size windows: each window executes concurrently and fully
resolves before the next starts, and the printed outcomes preserve the
collection's order.

Examples:
  reqprobe batch requests.json
  reqprobe batch requests.yaml --window 10
  reqprobe batch requests.json --rate 20
  reqprobe batch requests.json --watch`,
	Args: cobra.ExactArgs(1),
	RunE: batchCommand,
}

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	batchWindowFlag   int
	batchRateFlag     float64
	batchOutputFlag   string
	batchVerboseFlag  bool
	batchNoColorFlag  bool
	batchWatchFlag    bool
	batchInsecureFlag bool
	batchConfigFlag   string
)

func init() {
	batchCmd.Flags().IntVarP(&batchWindowFlag, "window", "w", getEnvInt("REQPROBE_WINDOW", 0), "Concurrent requests per window (env: REQPROBE_WINDOW)")
	batchCmd.Flags().Float64VarP(&batchRateFlag, "rate", "r", 0, "Limit request launches per second")
	batchCmd.Flags().StringVarP(&batchOutputFlag, "output", "o", getEnvString("REQPROBE_OUTPUT", "console"), "Output format: console, json (env: REQPROBE_OUTPUT)")
	batchCmd.Flags().BoolVarP(&batchVerboseFlag, "verbose", "v", false, "Show response headers and full bodies")
	batchCmd.Flags().BoolVar(&batchNoColorFlag, "no-color", getEnvBool("REQPROBE_NO_COLOR", false), "Disable colored output (env: REQPROBE_NO_COLOR)")
	batchCmd.Flags().BoolVar(&batchWatchFlag, "watch", false, "Watch the collection file and re-run on change")
	batchCmd.Flags().BoolVarP(&batchInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	batchCmd.Flags().StringVar(&batchConfigFlag, "config", getEnvString("REQPROBE_CONFIG", ""), "Path to config file (env: REQPROBE_CONFIG)")
}

func batchCommand(cmd *cobra.Command, args []string) error {
	file := args[0]

	fileConfig, err := config.LoadConfig(batchConfigFlag)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	cfg := fileConfig
	if batchWindowFlag > 0 {
		cfg.WindowSize = batchWindowFlag
	}
	if batchRateFlag > 0 {
		cfg.RateLimit = batchRateFlag
	}
	if batchInsecureFlag {
		cfg.ValidateSSL = config.BoolPtr(false)
	}

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	failed, err := runBatch(cmd, eng, cfg, file)
	if err != nil {
		return err
	}

	if !batchWatchFlag {
		if failed > 0 {
			cleanup()
			os.Exit(ExitRequestFailed)
		}
		return nil
	}

	// Watch mode: re-run the collection whenever the file is rewritten.
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(file); err != nil {
		return fmt.Errorf("failed to watch %s: %w", file, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", file)

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
					fmt.Fprintf(cmd.OutOrStdout(), "\nCollection changed, re-running...\n\n")
					if _, err := runBatch(cmd, eng, cfg, file); err != nil {
						fmt.Fprintf(os.Stderr, "error: %v\n", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", file)
				})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
		}
	}
}

// runBatch loads the collection, submits it, and prints the outcomes plus a
// latency summary. It returns how many requests failed.
func runBatch(cmd *cobra.Command, eng *engine.Engine, cfg *config.Config, file string) (int, error) {
	reqs, err := collection.Load(file)
	if err != nil {
		return 0, err
	}

	outcomes := eng.SubmitBatch(cmd.Context(), reqs)

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Success {
			failed++
		}
	}

	summary := eng.Metrics().GetSummary()

	switch strings.ToLower(batchOutputFlag) {
	case "json":
		formatter := output.NewJSONFormatter()
		for i, outcome := range outcomes {
			formatter.FormatOutcome(reqs[i], outcome)
		}
		formatter.FormatSummary(summary)
		if err := formatter.Flush(); err != nil {
			return failed, err
		}
	default:
		formatter := output.NewConsoleFormatter(
			output.WithVerbose(batchVerboseFlag),
			output.WithNoColor(batchNoColorFlag || cfg.GetNoColor()),
		)
		for i, outcome := range outcomes {
			formatter.FormatOutcome(reqs[i], outcome)
		}
		formatter.FormatSummary(summary)
	}

	return failed, nil
}
