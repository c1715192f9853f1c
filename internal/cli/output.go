package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Unclassified failure
	ExitCommandError = 2 // Command error (missing sources, malformed rules, bad config, etc.)
)

// ExitError carries the process exit code of a failed command.
type ExitError struct {
	Code    int // ExitFailure or ExitCommandError
	Message string
	Err     error // optional cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code     string `json:"code"` // "E001", "E012", etc.
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Line     int    `json:"line,omitempty"`
	Details  any    `json:"details,omitempty"`
}

// JSON reports whether the formatter emits JSON.
func (f *OutputFormatter) JSON() bool {
	return f.Format == "json"
}

// Success outputs a successful result. In text mode data is printed as is;
// commands with structured results render their own text.
func (f *OutputFormatter) Success(data any) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs a failure in the configured format.
func (f *OutputFormatter) Error(e CLIError) error {
	if f.JSON() {
		return f.encode(CLIResponse{Status: "error", Error: &e})
	}

	fmt.Fprintf(f.Writer, "%s %s\n", ErrorStyle.Render(fmt.Sprintf("Error [%s]:", e.Code)), e.Message)
	if e.Location != "" {
		loc := e.Location
		if e.Line > 0 {
			loc = fmt.Sprintf("%s:%d", loc, e.Line)
		}
		fmt.Fprintf(f.Writer, "  %s\n", PathStyle.Render(loc))
	}
	if f.Verbose && e.Details != nil {
		fmt.Fprintf(f.Writer, "  %s %v\n", MutedStyle.Render("Details:"), e.Details)
	}
	return nil
}

// Fail writes err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(err error) error {
	cliErr := classifyError(err)
	_ = f.Error(cliErr)
	return WrapExitError(exitCodeFor(err), cliErr.Code, err)
}

func (f *OutputFormatter) encode(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
