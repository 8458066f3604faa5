package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestFormatError(t *testing.T) {
	tests := []struct {
		name    string
		err     *FormatError
		wantMsg string
	}{
		{
			name:    "message only",
			err:     &FormatError{Message: "bad magic"},
			wantMsg: "npy: bad magic",
		},
		{
			name:    "with op",
			err:     &FormatError{Op: "read header", Message: "bad magic"},
			wantMsg: "npy: read header: bad magic",
		},
		{
			name:    "with expected and actual",
			err:     &FormatError{Op: "decode payload", Message: "payload length mismatch", Expected: "24", Actual: "16"},
			wantMsg: "npy: decode payload: payload length mismatch: expected 24, got 16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrFormat) {
				t.Errorf("errors.Is(%v, ErrFormat) = false", tt.err)
			}
		})
	}

	t.Run("wrapping a syntax error", func(t *testing.T) {
		syntax := &SyntaxError{Pos: 3, Expected: `"}"`, Actual: `"("`}
		err := &FormatError{Op: "read header", Message: "malformed metadata", Err: syntax}
		if !errors.Is(err, ErrFormat) {
			t.Error("wrapped error should still match ErrFormat")
		}
		var got *SyntaxError
		if !errors.As(err, &got) || got != syntax {
			t.Errorf("errors.As() did not find the syntax error")
		}
	})

	t.Run("wrapping an unsupported error", func(t *testing.T) {
		err := &FormatError{Message: "bad descr", Err: NewUnsupported("dtype", "complex")}
		if !errors.Is(err, ErrUnsupported) {
			t.Error("expected ErrUnsupported through Unwrap")
		}
	})
}

func TestNewMismatch(t *testing.T) {
	err := NewMismatch("read header", "unsupported version", "1.0 or 2.0", "3.0")
	want := "npy: read header: unsupported version: expected 1.0 or 2.0, got 3.0"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestSyntaxAndLexicalError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "syntax with tokens",
			err:     &SyntaxError{Pos: 9, Expected: "String", Actual: `")"`},
			wantMsg: `syntax error at offset 9: expected String, got ")"`,
		},
		{
			name:    "syntax with message",
			err:     &SyntaxError{Pos: 0, Message: "unexpected end of input"},
			wantMsg: "syntax error at offset 0: unexpected end of input",
		},
		{
			name:    "lexical",
			err:     &LexicalError{Pos: 1, Near: "@x"},
			wantMsg: `lexical error at offset 1 near "@x"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if !errors.Is(tt.err, ErrInvalidInput) {
				t.Errorf("errors.Is(%v, ErrInvalidInput) = false", tt.err)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      *NotFoundError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with ID",
			err:      &NotFoundError{Resource: "array", ID: "xs"},
			wantMsg:  "array not found: xs",
			wantBase: ErrNotFound,
		},
		{
			name:     "without ID",
			err:      &NotFoundError{Resource: "member"},
			wantMsg:  "member not found",
			wantBase: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}

	t.Run("with underlying error", func(t *testing.T) {
		underlyingErr := fmt.Errorf("disk error")
		err := &NotFoundError{Resource: "file", ID: "a.npy", Err: underlyingErr}
		if got := err.Unwrap(); got != underlyingErr {
			t.Errorf("Unwrap() = %v, want %v", got, underlyingErr)
		}
	})
}

func TestStateError(t *testing.T) {
	err := NewState("list", "reader is closed")
	if got, want := err.Error(), "cannot list: reader is closed"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrState) {
		t.Error("expected ErrState")
	}
	if got := (&StateError{Reason: "closed"}).Error(); got != "closed" {
		t.Errorf("Error() = %q, want %q", got, "closed")
	}
}

func TestValidationError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		wantMsg  string
		wantBase error
	}{
		{
			name:     "with field",
			err:      &ValidationError{Field: "shape", Message: "product 6 does not match 5 elements"},
			wantMsg:  "validation failed for shape: product 6 does not match 5 elements",
			wantBase: ErrInvalidInput,
		},
		{
			name:     "without field",
			err:      &ValidationError{Message: "invalid name"},
			wantMsg:  "validation failed: invalid name",
			wantBase: ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, tt.wantBase) {
				t.Errorf("Unwrap() = %v, want %v", got, tt.wantBase)
			}
		})
	}
}

func TestIOError(t *testing.T) {
	baseErr := fmt.Errorf("permission denied")
	tests := []struct {
		name    string
		err     *IOError
		wantMsg string
	}{
		{
			name:    "with path",
			err:     &IOError{Operation: "open", Path: "/data/a.npz", Err: baseErr},
			wantMsg: "failed to open /data/a.npz: permission denied",
		},
		{
			name:    "without path",
			err:     &IOError{Operation: "write", Err: baseErr},
			wantMsg: "failed to write: permission denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := tt.err.Unwrap(); !errors.Is(got, baseErr) {
				t.Errorf("Unwrap() = %v, want %v", got, baseErr)
			}
		})
	}
}

func TestUnsupportedError(t *testing.T) {
	err := NewUnsupported("dtype", "complex numbers")
	if got, want := err.Error(), "unsupported dtype: complex numbers"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Error("expected ErrUnsupported")
	}
	if got := (&UnsupportedError{Feature: "fortran order"}).Error(); got != "unsupported fortran order" {
		t.Errorf("Error() = %q", got)
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "context") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	base := fmt.Errorf("boom")
	err := Wrap(base, "write member")
	if err.Error() != "write member: boom" {
		t.Errorf("Wrap() = %q", err.Error())
	}
	if !Is(err, base) {
		t.Error("Wrap should preserve the chain")
	}

	if Wrapf(nil, "member %s", "xs") != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	err = Wrapf(base, "member %s", "xs")
	if err.Error() != "member xs: boom" {
		t.Errorf("Wrapf() = %q", err.Error())
	}

	var fe *FormatError
	if As(err, &fe) {
		t.Error("As() should not find a FormatError")
	}
}
