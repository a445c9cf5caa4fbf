package store

import "fmt"

// These constants mirror domain error codes to avoid circular imports.
const (
	codeInvalid  = "invalid"
	codeNotFound = "not_found"
)

// StoreError represents a store-specific error with a code and message.
type StoreError struct {
	Code    string
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// ErrorCode returns the error code for HTTP status mapping.
func (e *StoreError) ErrorCode() string {
	return e.Code
}

var (
	// ErrNotFound is returned by Load when a slot has never been written.
	ErrNotFound = &StoreError{Code: codeNotFound, Message: "slot not found"}

	// ErrEmptyKey is returned when a slot key is blank.
	ErrEmptyKey = &StoreError{Code: codeInvalid, Message: "slot key is required"}
)

// ErrUnknownProvider creates an error for unknown store providers.
func ErrUnknownProvider(provider string) error {
	return &StoreError{
		Code:    codeInvalid,
		Message: fmt.Sprintf("unknown store provider: %s", provider),
	}
}
