package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// Per-file ingest failures. The first two and ErrTypeFileUnreadable exclude
	// the whole file; the other two only affect a cell or a row.
	ErrTypeMissingHeader      ErrorType = "MISSING_HEADER"
	ErrTypeMissingScalarField ErrorType = "MISSING_SCALAR_FIELD"
	ErrTypeCellCoercion       ErrorType = "CELL_COERCION_FAILURE"
	ErrTypeRowRejected        ErrorType = "ROW_REJECTED"
	ErrTypeFileUnreadable     ErrorType = "FILE_UNREADABLE"

	ErrTypeParsing    ErrorType = "PARSING"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeConfig     ErrorType = "CONFIG"
)

// ErrEmptyTable is returned when a caller tries to persist a master table with no rows.
var ErrEmptyTable = stderrors.New("master table is empty")

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first AppError in err's chain, or "" if none.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// NewMissingHeaderError reports a file with no rounds-table header line.
func NewMissingHeaderError(source string) *AppError {
	return NewAppError(ErrTypeMissingHeader, "could not find 'Round' header", nil).
		WithContext("source", source)
}

// NewMissingScalarFieldError reports a blank item name or system type.
func NewMissingScalarFieldError(source, field string, line int) *AppError {
	return NewAppError(ErrTypeMissingScalarField, fmt.Sprintf("missing required field %q", field), nil).
		WithContext("source", source).
		WithContext("field", field).
		WithContext("line", line)
}

// NewCellCoercionError reports a non-numeric value in a numeric column.
func NewCellCoercionError(column, value string, line int) *AppError {
	return NewAppError(ErrTypeCellCoercion, fmt.Sprintf("column %q: cannot coerce %q to a number", column, value), nil).
		WithContext("column", column).
		WithContext("value", value).
		WithContext("line", line)
}

// NewRowRejectedError reports a data row dropped because its round number is unusable.
func NewRowRejectedError(reason string, line int) *AppError {
	return NewAppError(ErrTypeRowRejected, reason, nil).
		WithContext("line", line)
}

// NewFileUnreadableError wraps an I/O failure while reading an input file.
func NewFileUnreadableError(source string, cause error) *AppError {
	return NewAppError(ErrTypeFileUnreadable, fmt.Sprintf("cannot read %s", source), cause).
		WithContext("source", source)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
