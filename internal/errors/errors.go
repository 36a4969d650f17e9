// Package errors provides the error taxonomy of the menu bot and sentinel
// errors shared across packages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates malformed input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
)

// StorageError is a failed query or connection against the menu store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (op=%s): %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// RefreshError is a failed attempt to refresh the menu store.
type RefreshError struct {
	Source string
	Err    error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh error (source=%s): %v", e.Source, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// NewRefreshError creates a new refresh error.
func NewRefreshError(source string, err error) *RefreshError {
	return &RefreshError{Source: source, Err: err}
}

// TransportError is a message the chat platform did not accept.
type TransportError struct {
	Channel string
	Reason  string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error (channel=%s): %s", e.Channel, e.Reason)
}

// NewTransportError creates a new transport error.
func NewTransportError(channel, reason string) *TransportError {
	return &TransportError{Channel: channel, Reason: reason}
}

// IsNotFound checks if an error is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput checks if an error is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimitExceeded checks if an error is or wraps ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsStorage reports whether err is or wraps a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// IsRefresh reports whether err is or wraps a RefreshError.
func IsRefresh(err error) bool {
	var re *RefreshError
	return errors.As(err, &re)
}
