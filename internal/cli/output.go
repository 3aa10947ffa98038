package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/secfit/ip-protector/internal/registry"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Negative result: not verified, already registered, not found
	ExitCommandError = 2 // Command error: bad input, unreachable store, bad config
)

// Error codes for failures outside the registry.
const (
	ErrCodeConfig   = "CONFIG"
	ErrCodeStore    = "STORE_OPEN"
	ErrCodeInput    = "INPUT"
	ErrCodeManifest = "MANIFEST"
	ErrCodeInternal = "INTERNAL"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// exitCodeFor classifies a registry error.
func exitCodeFor(code registry.Code) int {
	switch code {
	case registry.CodeAlreadyRegistered, registry.CodeNotFound:
		return ExitFailure
	default:
		return ExitCommandError
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool

	// TraceID is attached to every JSON response. Set by newFormatter.
	TraceID string
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status  string    `json:"status"`             // "ok" or "error"
	Data    any       `json:"data,omitempty"`     // success payload
	Error   *CLIError `json:"error,omitempty"`    // error details
	TraceID string    `json:"trace_id,omitempty"` // correlates with server logs
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // registry code or one of ErrCode*
	Message string `json:"message"`           // human-readable message
	Field   string `json:"field,omitempty"`   // offending input, when known
	Details any    `json:"details,omitempty"` // additional context
}

// texter is implemented by results with a custom text rendering.
type texter interface {
	Text() string
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  w,
		Verbose: opts.Verbose,
		TraceID: newTraceID(),
	}
}

func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status:  "ok",
			Data:    data,
			TraceID: f.TraceID,
		})
	}

	if t, ok := data.(texter); ok {
		_, err := fmt.Fprintln(f.Writer, t.Text())
		return err
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, field, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Field:   field,
				Details: details,
			},
			TraceID: f.TraceID,
		})
	}

	if field != "" {
		fmt.Fprintf(f.Writer, "Error [%s] %s: %s\n", code, field, message)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// codedError tags an error with the CLI error code to report it under.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

func withCode(code string, err error) error {
	return &codedError{code: code, err: err}
}

// Fail reports err and returns the ExitError the command should return.
// Registry errors keep their code; errors tagged by withCode use theirs;
// anything else is reported under fallbackCode.
func (f *OutputFormatter) Fail(fallbackCode, message string, err error) error {
	var ce *codedError
	if errors.As(err, &ce) {
		fallbackCode = ce.code
	}

	var re *registry.Error
	if errors.As(err, &re) {
		var details any
		if re.Key != "" {
			details = map[string]string{"key": re.Key}
		}
		_ = f.Error(string(re.Code), re.Field, re.Message, details)
		return WrapExitError(exitCodeFor(re.Code), message, err)
	}
	_ = f.Error(fallbackCode, "", err.Error(), nil)
	return WrapExitError(ExitCommandError, message, err)
}
