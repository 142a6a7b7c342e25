package cmd

import (
	"fmt"
	"strings"

	"github.com/reqprobe/reqprobe/packages/core/config"
	"github.com/reqprobe/reqprobe/packages/core/engine"
	"github.com/reqprobe/reqprobe/packages/output"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the request history log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded requests, newest first",
	RunE:  historyListCommand,
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <request-id>",
	Short: "Remove one record from the history log",
	Args:  cobra.ExactArgs(1),
	RunE:  historyRemoveCommand,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every record from the history log",
	RunE:  historyClearCommand,
}

var (
	historyOutputFlag  string
	historyNoColorFlag bool
	historyConfigFlag  string
)

func init() {
	historyCmd.PersistentFlags().StringVar(&historyConfigFlag, "config", getEnvString("REQPROBE_CONFIG", ""), "Path to config file (env: REQPROBE_CONFIG)")
	historyListCmd.Flags().StringVarP(&historyOutputFlag, "output", "o", "console", "Output format: console, json")
	historyListCmd.Flags().BoolVar(&historyNoColorFlag, "no-color", getEnvBool("REQPROBE_NO_COLOR", false), "Disable colored output (env: REQPROBE_NO_COLOR)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyRemoveCmd)
	historyCmd.AddCommand(historyClearCmd)
}

func openHistory() (*engine.Engine, func(), *config.Config, error) {
	cfg, err := config.LoadConfig(historyConfigFlag)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cannot load config: %w", err)
	}
	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return eng, cleanup, cfg, nil
}

func historyListCommand(cmd *cobra.Command, args []string) error {
	eng, cleanup, cfg, err := openHistory()
	if err != nil {
		return err
	}
	defer cleanup()

	records := eng.History()

	if strings.ToLower(historyOutputFlag) == "json" {
		return output.NewJSONFormatter().WriteHistory(records)
	}

	formatter := output.NewConsoleFormatter(
		output.WithNoColor(historyNoColorFlag || cfg.GetNoColor()),
	)
	formatter.FormatHistory(records)
	return nil
}

func historyRemoveCommand(cmd *cobra.Command, args []string) error {
	eng, cleanup, _, err := openHistory()
	if err != nil {
		return err
	}
	defer cleanup()

	requestID := args[0]
	var found bool
	for _, rec := range eng.History() {
		if rec.Request.ID == requestID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("no history record for request %s", requestID)
	}

	eng.RemoveHistory(requestID)
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", requestID)
	return nil
}

func historyClearCommand(cmd *cobra.Command, args []string) error {
	eng, cleanup, _, err := openHistory()
	if err != nil {
		return err
	}
	defer cleanup()

	eng.ClearHistory()
	fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
	return nil
}
