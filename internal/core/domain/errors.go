package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBackend      = errors.New("backend error")
	ErrTransport    = errors.New("transport failure")
	ErrValidation   = errors.New("validation failed")
	ErrStateExpired = errors.New("conversation state expired")
	ErrUnauthorized = errors.New("unauthorized")
	ErrTooLarge     = errors.New("payload too large")
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
