package ocr

import (
	"errors"
	"fmt"
)

// Common OCR processing errors
var (
	// ErrEngineNotFound is returned when the engine probe fails: the binary is
	// missing from PATH, exits non-zero on a version query, or produces output
	// that cannot be parsed. An enabled stage raises it at construction time.
	ErrEngineNotFound = errors.New("OCR engine is not available")

	// ErrEngineExecution is returned when a recognition invocation fails with
	// a non-zero exit code or exceeds the configured timeout. The wrapping
	// OcrError carries the engine's error-channel output and the attempted
	// command line.
	ErrEngineExecution = errors.New("OCR engine invocation failed")

	// ErrImageTooLarge is returned when an input image exceeds what the
	// engine accepts for synchronous processing.
	ErrImageTooLarge = errors.New("input image exceeds the engine's size limit")

	// ErrMissingCredentials is returned when a cloud engine is selected but
	// neither GOOGLE_APPLICATION_CREDENTIALS nor GOOGLE_CREDENTIALS is set.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when an engine's configuration is
	// incomplete (for example a Document AI engine without a processor ID).
	ErrInvalidConfiguration = errors.New("invalid OCR engine configuration")
)

// OcrError wraps errors with additional context about the OCR failure.
type OcrError struct {
	// Op is the operation that failed (e.g., "Probe", "Recognize").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure, such as the
	// command line attempted and the engine's stderr output.
	Details string
}

// Error implements the error interface.
func (e *OcrError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OcrError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OcrError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOcrError creates a new OcrError with the specified operation and underlying error.
func NewOcrError(op string, err error, details string) *OcrError {
	return &OcrError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOcrError wraps an error as an OcrError if it isn't already one.
func WrapOcrError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OcrError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOcrError(op, err, details)
}
