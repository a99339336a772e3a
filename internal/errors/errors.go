package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a nutrilog error code.
type ErrorCode string

const (
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"       // 400
	ErrInvalidDate         ErrorCode = "INVALID_DATE"          // 400
	ErrNotFound            ErrorCode = "NOT_FOUND"             // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"        // 404
	ErrInvalidCatalogEntry ErrorCode = "INVALID_CATALOG_ENTRY" // 422
	ErrCancelled           ErrorCode = "CANCELLED"             // 499
	ErrInternal            ErrorCode = "INTERNAL"              // 500
)

// NutriError represents a structured error with code, status, and details.
type NutriError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NutriError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *NutriError {
	return &NutriError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewInvalidDate creates a 400 error for a caller-supplied date that does not parse.
// Stored records with bad dates never produce this; they are counted instead.
func NewInvalidDate(field, value string) *NutriError {
	return &NutriError{
		Code:    ErrInvalidDate,
		Status:  400,
		Message: fmt.Sprintf("%s is not a valid date: %q (want DD-MM-YYYY, DD-MM-YY or YYYY-MM-DD)", field, value),
		Details: map[string]any{"field": field, "value": value},
	}
}

// NewNotFound creates a 404 error for a missing record or catalog entry.
func NewNotFound(identifier string) *NutriError {
	return &NutriError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for import paths that do not exist.
func NewFileNotFound(path string) *NutriError {
	return &NutriError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewInvalidCatalogEntry creates a 422 error for catalog entries without any calorie field.
func NewInvalidCatalogEntry(itemName string) *NutriError {
	return &NutriError{
		Code:    ErrInvalidCatalogEntry,
		Status:  422,
		Message: fmt.Sprintf("catalog entry %q needs calories_per_100g or calories_per_portion", itemName),
		Details: map[string]any{"item_name": itemName},
	}
}

// NewCancelled creates a 499 error when the caller's context ends mid-operation.
func NewCancelled(operation string) *NutriError {
	return &NutriError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NutriError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NutriError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a NutriError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NutriError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}
