package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinels for errors.Is checks across the taxonomy.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDataGap      = errors.New("insufficient data")
	ErrComputation  = errors.New("computation failed")
	ErrNotFound     = errors.New("not found")
)

// Tool error codes returned on the MCP surface.
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeDataGap       = "DATA_GAP"
	CodeComputation   = "COMPUTATION_ERROR"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_SERVER_ERROR"
	CodeDosageParsing = "DOSAGE_PARSING_ERROR"
	CodeNotFound      = "NOT_FOUND"
)

// InputError rejects a request before any evaluator runs.
type InputError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
	Err     error  `json:"-"`
}

func (e *InputError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// Unwrap exposes both the sentinel and any underlying cause.
func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// NewInputError creates a new InputError.
func NewInputError(field, message string, value any) *InputError {
	return &InputError{Field: field, Message: message, Value: value}
}

// DataGapError signals that a drug is absent from the rule tables. It is not
// fatal: evaluators report data_available=false instead of returning it.
type DataGapError struct {
	Drug      string
	Evaluator Source
}

func (e *DataGapError) Error() string {
	if e.Evaluator != "" {
		return fmt.Sprintf("%s evaluator: no rule data for drug %q", e.Evaluator, e.Drug)
	}
	return fmt.Sprintf("no rule data for drug %q", e.Drug)
}

func (e *DataGapError) Unwrap() error {
	return ErrDataGap
}

// ComputationError wraps an internal fault inside one evaluator.
type ComputationError struct {
	Evaluator Source
	Op        string
	Err       error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("%s evaluator: %s: %v", e.Evaluator, e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *ComputationError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrComputation, e.Err}
	}
	return []error{ErrComputation}
}

// ToolError represents a standardized error response on the tool surface.
type ToolError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewToolError creates a new ToolError with timestamp.
func NewToolError(code, message, details, requestID string) *ToolError {
	return &ToolError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ToolErrorCode maps an engine error to its tool error code.
func ToolErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		var ie *InputError
		if errors.As(err, &ie) && ie.Field == "dosage" {
			return CodeDosageParsing
		}
		return CodeInvalidInput
	case errors.Is(err, ErrDataGap):
		return CodeDataGap
	case errors.Is(err, ErrComputation):
		return CodeComputation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	default:
		return CodeInternalError
	}
}
