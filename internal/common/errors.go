package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDatabase          = errors.New("database error")
	ErrMalformedDocument = errors.New("malformed document")
	ErrExport            = errors.New("export failed")
)

// Error codes carried by AppError.
const (
	CodeConfig       = "CONFIG_ERROR"
	CodeExportFailed = "EXPORT_FAILED"
	CodeDatabase     = "DATABASE_ERROR"
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewExportError wraps a spreadsheet serialization failure. The result matches ErrExport.
func NewExportError(message string, cause error) *AppError {
	return NewAppError(CodeExportFailed, message, errors.Join(ErrExport, cause))
}

// DocumentError reports a single input document that could not be parsed as XML.
// It matches ErrMalformedDocument.
type DocumentError struct {
	Name  string
	Cause error
}

func NewDocumentError(name string, cause error) *DocumentError {
	return &DocumentError{Name: name, Cause: cause}
}

func (e *DocumentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed document %q: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("malformed document %q", e.Name)
}

func (e *DocumentError) Unwrap() error { return e.Cause }

func (e *DocumentError) Is(target error) bool { return target == ErrMalformedDocument }

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func UnavailableError(message string) error {
	return status.Error(codes.Unavailable, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}
