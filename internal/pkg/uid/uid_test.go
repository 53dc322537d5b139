package uid

import (
	"encoding/base64"
	"testing"
)

func TestSnowflakeIsMonotonic(t *testing.T) {
	// Arrange
	gen, err := NewSnowflake(1)
	if err != nil {
		t.Fatalf("NewSnowflake() error = %v", err)
	}

	// Act & Assert
	prev := gen.Generate()
	for range 1000 {
		next := gen.Generate()
		if next <= prev {
			t.Fatalf("Generate() = %d after %d", next, prev)
		}
		prev = next
	}
}

func TestSnowflakeHostNode(t *testing.T) {
	if _, err := NewSnowflake(-1); err != nil {
		t.Fatalf("NewSnowflake(-1) error = %v", err)
	}
}

func TestTokenGenerate(t *testing.T) {
	gen := NewToken(0)

	a, b := gen.Generate(), gen.Generate()

	if a == b {
		t.Fatalf("two tokens are equal: %q", a)
	}
	raw, err := base64.RawURLEncoding.DecodeString(a)
	if err != nil {
		t.Fatalf("token is not base64url: %v", err)
	}
	if len(raw) != DefaultTokenBytes {
		t.Fatalf("len(raw) = %d, want %d", len(raw), DefaultTokenBytes)
	}
}

func TestUUIDGenerate(t *testing.T) {
	if got := NewUUID().Generate(); len(got) != 36 {
		t.Fatalf("Generate() = %q, want a 36 char uuid", got)
	}
}
