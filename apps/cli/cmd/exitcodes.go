package cmd

// Exit codes for the reqprobe CLI
const (
	// ExitSuccess indicates the request(s) completed successfully
	ExitSuccess = 0

	// ExitRequestFailed indicates one or more requests failed
	ExitRequestFailed = 1

	// ExitValidationError indicates a request was rejected before execution
	ExitValidationError = 2

	// ExitConfigError indicates a configuration or collection file error
	ExitConfigError = 3

	// ExitUsageError indicates invalid CLI usage
	ExitUsageError = 64
)
