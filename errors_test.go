package docstore

import (
	"errors"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrNotFound", ErrNotFound, "document not found"},
		{"ErrNoIdentifier", ErrNoIdentifier, "no identifier present and no generator supplied"},
		{"ErrNotJSONObject", ErrNotJSONObject, "encoded value is not a JSON object"},
		{"ErrTypeMismatch", ErrTypeMismatch, "collection already open with a different identifier type"},
		{"ErrConflict", ErrConflict, "concurrent modification detected"},
		{"ErrUpdateRetries", ErrUpdateRetries, "atomic update retries exhausted"},
		{"ErrInvalidConfig", ErrInvalidConfig, "invalid configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.want {
				t.Errorf("error message = %q, want %q", tt.err.Error(), tt.want)
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	baseErr := errors.New("base error")
	ctx := map[string]interface{}{
		"collection": "users",
		"value":      42,
	}

	err := WithContext(baseErr, ctx)

	var errWithCtx *ErrorWithContext
	if !errors.As(err, &errWithCtx) {
		t.Fatalf("expected ErrorWithContext, got %T", err)
	}

	if !errors.Is(err, baseErr) {
		t.Error("expected error to wrap base error")
	}

	if errWithCtx.Context["collection"] != "users" {
		t.Errorf("context collection = %v, want 'users'", errWithCtx.Context["collection"])
	}
	if errWithCtx.Context["value"] != 42 {
		t.Errorf("context value = %v, want 42", errWithCtx.Context["value"])
	}

	if err.Error() == "" {
		t.Error("error message should not be empty")
	}

	if WithContext(nil, ctx) != nil {
		t.Error("WithContext(nil, ...) should stay nil")
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"direct ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", WithContext(ErrNotFound, nil), true},
		{"other error", errors.New("other"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"ErrConflict", ErrConflict, true},
		{"ErrUpdateRetries", ErrUpdateRetries, true},
		{"wrapped ErrConflict", WithContext(ErrConflict, nil), true},
		{"ErrNotFound", ErrNotFound, false},
		{"ErrInvalidConfig", ErrInvalidConfig, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorWithContextUnwrap(t *testing.T) {
	baseErr := errors.New("base")
	wrappedErr := WithContext(baseErr, map[string]interface{}{"key": "value"})

	if !errors.Is(wrappedErr, baseErr) {
		t.Error("errors.Is should find base error")
	}

	var errWithCtx *ErrorWithContext
	if !errors.As(wrappedErr, &errWithCtx) {
		t.Error("errors.As should extract ErrorWithContext")
	}

	unwrapped := errors.Unwrap(wrappedErr)
	if !errors.Is(unwrapped, baseErr) {
		t.Error("Unwrap should return base error")
	}
}
