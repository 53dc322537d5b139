package otp

import (
	"errors"
	"testing"
)

func TestNumericGenerate(t *testing.T) {
	// Arrange
	gen, err := NewNumeric(6)
	if err != nil {
		t.Fatalf("NewNumeric() error = %v", err)
	}

	// Act & Assert
	seen := make(map[string]struct{})
	for range 200 {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if !gen.Valid(code) {
			t.Fatalf("Generate() = %q, not a valid 6 digit code", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 150 {
		t.Fatalf("only %d distinct codes out of 200", len(seen))
	}
}

func TestNumericValid(t *testing.T) {
	gen, _ := NewNumeric(6)

	tests := []struct {
		name string
		code string
		want bool
	}{
		{name: "ok", code: "012345", want: true},
		{name: "short", code: "12345", want: false},
		{name: "long", code: "1234567", want: false},
		{name: "letters", code: "12a456", want: false},
		{name: "empty", code: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := gen.Valid(tt.code); got != tt.want {
				t.Fatalf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNewNumericRange(t *testing.T) {
	for _, d := range []int{0, 3, 10} {
		if _, err := NewNumeric(d); !errors.Is(err, ErrDigits) {
			t.Fatalf("NewNumeric(%d) error = %v, want ErrDigits", d, err)
		}
	}
}
