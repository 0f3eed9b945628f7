package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy rejects an upload while another one is in flight.
	ErrBusy = errors.New("upload already in progress")
	// ErrValidationRejected rejects a whole batch when any candidate fails
	// the allow-list.
	ErrValidationRejected = errors.New("batch rejected by validation")
	// ErrUploadTransport marks a failed upload round trip; session files
	// are untouched.
	ErrUploadTransport = errors.New("upload transport failure")
	// ErrDeleteTransport marks a failed server delete; the record stays.
	ErrDeleteTransport = errors.New("delete transport failure")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionLimit    = errors.New("session limit reached")
	ErrRecordNotFound  = errors.New("record not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrTemporary       = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
