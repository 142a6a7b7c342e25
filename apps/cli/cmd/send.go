package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/reqprobe/reqprobe/packages/core/config"
	"github.com/reqprobe/reqprobe/packages/output"
	"github.com/reqprobe/reqprobe/packages/request"
	"github.com/spf13/cobra"
)

var sendCmd = &cobra.Command{
	Use:   "send <url>",
	Short: "Submit a single HTTP request through the execution pipeline",
	Long: `Submit one request: it is validated against the security policy,
encoded per content type, executed with a timeout, cached on success,
and recorded to history.

Examples:
  reqprobe send https://api.example.com/health
  reqprobe send -X POST --content-type application/json -F a=1 https://api.example.com/items
  reqprobe send -X POST --body '{"a":"1"}' -H "Content-Type: application/json" https://api.example.com/items
  reqprobe send -X DELETE https://api.example.com/items/42`,
	Args: cobra.ExactArgs(1),
	RunE: sendCommand,
}

var (
	sendMethodFlag      string
	sendHeaderFlags     []string
	sendBodyFlag        string
	sendFieldFlags      []string
	sendContentTypeFlag string
	sendCrossOriginFlag bool
	sendTimeoutFlag     string
	sendOutputFlag      string
	sendVerboseFlag     bool
	sendNoColorFlag     bool
	sendInsecureFlag    bool
	sendProxyFlag       string
	sendConfigFlag      string
)

func init() {
	sendCmd.Flags().StringVarP(&sendMethodFlag, "method", "X", "GET", "HTTP method")
	sendCmd.Flags().StringArrayVarP(&sendHeaderFlags, "header", "H", nil, "Request header as 'Key: Value' (repeatable)")
	sendCmd.Flags().StringVar(&sendBodyFlag, "body", "", "Raw request body")
	sendCmd.Flags().StringArrayVarP(&sendFieldFlags, "field", "F", nil, "Body field as key=value, encoded per content type (repeatable)")
	sendCmd.Flags().StringVar(&sendContentTypeFlag, "content-type", "", "Content type driving body encoding")
	sendCmd.Flags().BoolVar(&sendCrossOriginFlag, "cross-origin", false, "Route through the isolated execution strategy")
	sendCmd.Flags().StringVar(&sendTimeoutFlag, "timeout", getEnvString("REQPROBE_TIMEOUT", ""), "Request timeout (e.g., 30s, 500ms) (env: REQPROBE_TIMEOUT)")
	sendCmd.Flags().StringVarP(&sendOutputFlag, "output", "o", getEnvString("REQPROBE_OUTPUT", "console"), "Output format: console, json (env: REQPROBE_OUTPUT)")
	sendCmd.Flags().BoolVarP(&sendVerboseFlag, "verbose", "v", false, "Show response headers and full body")
	sendCmd.Flags().BoolVar(&sendNoColorFlag, "no-color", getEnvBool("REQPROBE_NO_COLOR", false), "Disable colored output (env: REQPROBE_NO_COLOR)")
	sendCmd.Flags().BoolVarP(&sendInsecureFlag, "insecure", "k", false, "Disable SSL certificate validation")
	sendCmd.Flags().StringVar(&sendProxyFlag, "proxy", getEnvString("REQPROBE_PROXY", ""), "Proxy URL (env: REQPROBE_PROXY)")
	sendCmd.Flags().StringVar(&sendConfigFlag, "config", getEnvString("REQPROBE_CONFIG", ""), "Path to config file (env: REQPROBE_CONFIG)")
}

// parseHeaderFlag accepts both 'Key: Value' and 'Key=Value'.
func parseHeaderFlag(raw string) (string, string, error) {
	if key, value, ok := strings.Cut(raw, ":"); ok {
		return strings.TrimSpace(key), strings.TrimSpace(value), nil
	}
	if key, value, ok := strings.Cut(raw, "="); ok {
		return strings.TrimSpace(key), strings.TrimSpace(value), nil
	}
	return "", "", fmt.Errorf("invalid header %q (expected 'Key: Value')", raw)
}

func parseFieldFlag(raw string) (string, string, error) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return "", "", fmt.Errorf("invalid field %q (expected key=value)", raw)
	}
	return key, value, nil
}

func sendCommand(cmd *cobra.Command, args []string) error {
	fileConfig, err := config.LoadConfig(sendConfigFlag)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}

	cfg := fileConfig
	if sendInsecureFlag {
		cfg.ValidateSSL = config.BoolPtr(false)
	}
	if sendProxyFlag != "" {
		cfg.Proxy = sendProxyFlag
	}

	req := request.New(strings.ToUpper(sendMethodFlag), args[0])
	for _, raw := range sendHeaderFlags {
		key, value, err := parseHeaderFlag(raw)
		if err != nil {
			return err
		}
		req.SetHeader(key, value)
	}
	for _, raw := range sendFieldFlags {
		key, value, err := parseFieldFlag(raw)
		if err != nil {
			return err
		}
		req.SetField(key, value)
	}
	if sendBodyFlag != "" {
		req.SetBody(sendBodyFlag)
	}
	if sendContentTypeFlag != "" {
		req.SetContentType(sendContentTypeFlag)
	}
	req.CrossOrigin = sendCrossOriginFlag

	if sendTimeoutFlag != "" {
		timeout, err := time.ParseDuration(sendTimeoutFlag)
		if err != nil {
			return fmt.Errorf("invalid timeout value %q: %w (use format like 30s, 1m, 500ms)", sendTimeoutFlag, err)
		}
		req.SetTimeout(timeout)
	}

	eng, cleanup, err := buildEngine(cfg)
	if err != nil {
		return err
	}

	outcome := eng.Submit(cmd.Context(), req)
	cleanup()

	switch strings.ToLower(sendOutputFlag) {
	case "json":
		formatter := output.NewJSONFormatter()
		formatter.FormatOutcome(req, outcome)
		if err := formatter.Flush(); err != nil {
			return err
		}
	default:
		formatter := output.NewConsoleFormatter(
			output.WithVerbose(sendVerboseFlag),
			output.WithNoColor(sendNoColorFlag || cfg.GetNoColor()),
		)
		formatter.FormatOutcome(req, outcome)
	}

	if !outcome.Success {
		if outcome.IsRejected() {
			os.Exit(ExitValidationError)
		}
		os.Exit(ExitRequestFailed)
	}
	return nil
}
