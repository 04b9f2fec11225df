package docstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	// Data errors
	ErrNotFound     = errors.New("document not found")
	ErrInvalidData  = errors.New("invalid data format")
	ErrNoIdentifier = errors.New("no identifier present and no generator supplied")

	// Facade errors
	ErrNotJSONObject = errors.New("encoded value is not a JSON object")

	// Collection errors
	ErrTypeMismatch = errors.New("collection already open with a different identifier type")

	// Engine errors
	ErrConflict      = errors.New("concurrent modification detected")
	ErrUpdateRetries = errors.New("atomic update retries exhausted")
	ErrStoreClosed   = errors.New("store is closed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ErrorWithContext adds additional context to errors for better debugging and logging
type ErrorWithContext struct {
	Err     error
	Context map[string]interface{}
}

func (e *ErrorWithContext) Error() string {
	if len(e.Context) == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v (context: %+v)", e.Err, e.Context)
}

func (e *ErrorWithContext) Unwrap() error {
	return e.Err
}

// WithContext adds context to an error
func WithContext(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}
	return &ErrorWithContext{
		Err:     err,
		Context: context,
	}
}

// IsNotFound checks if an error is a "not found" error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict/concurrent modification error
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUpdateRetries)
}

// IsRetryable checks if an error is safe to retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrUpdateRetries)
}
