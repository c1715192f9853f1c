package cli

import (
	"context"
	"errors"

	"github.com/roach88/rulegen/internal/ir"
	"github.com/roach88/rulegen/internal/taskcomment"
)

// Error codes reported by the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeUsage       = "E002" // Invalid arguments or flags
	ErrCodeConfig      = "E003" // Configuration could not be loaded
	ErrCodeCanceled    = "E004" // Interrupted
	ErrCodeNotFound    = "E005" // Source path or record not found
	ErrCodeStore       = "E006" // Build cache or comment store failure
	ErrCodeWriteFailed = "E007" // Output directory write error

	ErrCodeUnsupported = "E010" // No resource kind for a file
	ErrCodeMalformed   = "E011" // Structural parse failure
	ErrCodeDuplicate   = "E012" // Same rule name twice in one package
	ErrCodeInvalid     = "E013" // Invalid task comment
)

var codeByIRCode = map[ir.ErrorCode]string{
	ir.ErrResourceNotFound:        ErrCodeNotFound,
	ir.ErrUnsupportedResourceType: ErrCodeUnsupported,
	ir.ErrMalformedSource:         ErrCodeMalformed,
	ir.ErrDuplicateRuleDefinition: ErrCodeDuplicate,
}

// codedError tags an error with a CLI error code.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// withCode tags err with code unless err is nil.
func withCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &codedError{code: code, err: err}
}

// classifyError maps err onto its CLI error code and position.
func classifyError(err error) CLIError {
	var irErr *ir.Error
	if errors.As(err, &irErr) {
		return CLIError{
			Code:     codeByIRCode[irErr.Code],
			Message:  irErr.Message,
			Location: irErr.Location,
			Line:     irErr.Line,
			Details:  detailsOf(irErr),
		}
	}

	cliErr := CLIError{Code: ErrCodeGeneric, Message: err.Error()}
	var coded *codedError
	switch {
	case errors.As(err, &coded):
		cliErr.Code = coded.code
	case errors.Is(err, taskcomment.ErrNotFound):
		cliErr.Code = ErrCodeNotFound
	case errors.Is(err, taskcomment.ErrInvalidComment):
		cliErr.Code = ErrCodeInvalid
	case errors.Is(err, context.Canceled):
		cliErr.Code = ErrCodeCanceled
	}
	return cliErr
}

func detailsOf(e *ir.Error) any {
	if e.Err == nil {
		return nil
	}
	return e.Err.Error()
}

// exitCodeFor returns the exit code for err. Every classified failure is a
// command error.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}
