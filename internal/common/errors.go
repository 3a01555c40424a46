package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError wraps a cause with a stable code and message.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
)

// Scan pipeline error taxonomy. Each kind maps to one localized
// presentation string; handlers translate the kind, never the raw error.
var (
	// ErrNotImage rejects the upload before preprocessing; no scan record
	// is created.
	ErrNotImage = errors.New("file is not a supported image")
	// ErrExtractionFailed covers remote-call errors and malformed model
	// responses ("processing failed").
	ErrExtractionFailed = errors.New("extraction failed")
	// ErrExtractionTimeout is the caller-enforced timeout on the vision
	// call; equivalent to processing failed, kept distinct for reporting.
	ErrExtractionTimeout = errors.New("extraction timed out")
	// ErrNoDataExtracted means the model answered but produced no usable
	// content, distinct from a failed call.
	ErrNoDataExtracted = errors.New("no data extracted")
	// ErrFeedbackWrite is a non-blocking warning; the displayed match
	// result stands.
	ErrFeedbackWrite = errors.New("feedback write failed")
	// ErrScanStateConflict rejects a lifecycle transition that would skip
	// or revisit a state.
	ErrScanStateConflict = errors.New("scan state conflict")
)

// localized maps error kinds to their Arabic-first presentation strings.
// The product surfaces Arabic; the error kind stays machine-readable.
var localized = map[error]string{
	ErrNotImage:          "يرجى اختيار ملف صورة صالح",
	ErrExtractionFailed:  "فشلت معالجة المستند، يرجى المحاولة مرة أخرى",
	ErrExtractionTimeout: "انتهت مهلة معالجة المستند، يرجى المحاولة مرة أخرى",
	ErrNoDataExtracted:   "لم يتم استخراج أي بيانات من الصورة",
	ErrFeedbackWrite:     "تعذر حفظ التأكيد، النتيجة المعروضة لم تتأثر",
	ErrScanStateConflict: "حالة المسح لا تسمح بهذا الإجراء",
	ErrNotFound:          "العنصر المطلوب غير موجود",
	ErrInvalidInput:      "مدخلات غير صالحة",
}

// Localize returns the Arabic presentation string for an error kind,
// walking the wrap chain. Unknown errors get the generic internal message.
func Localize(err error) string {
	for kind, msg := range localized {
		if errors.Is(err, kind) {
			return msg
		}
	}
	return "حدث خطأ غير متوقع"
}
