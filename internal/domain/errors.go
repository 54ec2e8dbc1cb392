package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a DomainError with the same code and message,
// so wrapped copies created with a cause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidFeedbackValue = NewDomainError(ErrCodeValidation, "feedback must be one of -1, 0, 1")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
	ErrMissingPortal        = NewDomainError(ErrCodeValidation, "portal is required")
)

// Not found errors. Lookups inside the ranking core never surface these; they
// only reach callers of direct read accessors such as GetResult.
var (
	ErrResultNotFound = NewDomainError(ErrCodeNotFound, "result not found")
	ErrSearchNotFound = NewDomainError(ErrCodeNotFound, "search not found")
)

// Storage errors
var (
	ErrStorageUnavailable = NewDomainError(ErrCodeStorageUnavailable, "storage unavailable")
)

// StorageUnavailable wraps a transient store failure that survived all retries.
func StorageUnavailable(cause error) error {
	return NewDomainErrorWithCause(ErrCodeStorageUnavailable, ErrStorageUnavailable.Message, cause)
}
