package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidFlavor, "unsupported flavor: %s", "abi")

	if err.Code != ErrCodeInvalidFlavor {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidFlavor)
	}

	if err.Message != "unsupported flavor: abi" {
		t.Errorf("Message = %v, want %v", err.Message, "unsupported flavor: abi")
	}

	expected := "INVALID_FLAVOR: unsupported flavor: abi"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("zip: not a valid zip file")
	err := Wrap(ErrCodePluginArchive, cause, "open plugin")

	if err.Code != ErrCodePluginArchive {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodePluginArchive)
	}
	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeDependencyCycle, "test"),
			code:     ErrCodeDependencyCycle,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeDependencyCycle, "test"),
			code:     ErrCodeInvalidFlavor,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodePluginArchive, New(ErrCodeInternal, "inner"), "outer"),
			code:     ErrCodePluginArchive,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidArg,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidArg,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(New(ErrCodeUnknownTarget, "x")); got != ErrCodeUnknownTarget {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeUnknownTarget)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %v, want empty", got)
	}
}

func TestFamilies(t *testing.T) {
	tests := []struct {
		code   Code
		user   bool
		plugin bool
	}{
		{ErrCodeInvalidExportedDep, true, false},
		{ErrCodeDependencyCycle, true, false},
		{ErrCodePluginSymbol, false, true},
		{ErrCodePluginInstantiate, false, true},
		{ErrCodeInternal, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := New(tt.code, "x")
			if got := IsUserError(err); got != tt.user {
				t.Errorf("IsUserError() = %v, want %v", got, tt.user)
			}
			if got := IsPluginError(err); got != tt.plugin {
				t.Errorf("IsPluginError() = %v, want %v", got, tt.plugin)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidFlavor, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "Error with cause",
			err:      Wrap(ErrCodeInvalidConfig, errors.New("bad toml"), "read config"),
			expected: "read config: bad toml",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestInternalPanics(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(*Error)
		if !ok {
			t.Fatalf("recovered %T, want *Error", r)
		}
		if err.Code != ErrCodeInternal {
			t.Errorf("Code = %v, want %v", err.Code, ErrCodeInternal)
		}
	}()
	Internal("rule %s not registered", "//a:b")
}
