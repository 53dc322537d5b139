package config

import (
	"testing"
	"time"
)

const sampleYAML = `
modules:
  otpauth:
    challenge_ttl_seconds: 300
    session_ttl_minutes: 30
    retention_hours: 24
    max_attempts: 3
    secret: "c2VjcmV0"
app:
  server:
    cors: "http://a.test, ,http://b.test"
instrument:
  log_mask_fields:
    - code
    - token
`

func TestViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act & Assert
	if got := cfg.GetSecond("modules.otpauth.challenge_ttl_seconds"); got != 5*time.Minute {
		t.Fatalf("challenge ttl = %v, want 5m", got)
	}
	if got := cfg.GetMinute("modules.otpauth.session_ttl_minutes"); got != 30*time.Minute {
		t.Fatalf("session ttl = %v, want 30m", got)
	}
	if got := cfg.GetHour("modules.otpauth.retention_hours"); got != 24*time.Hour {
		t.Fatalf("retention = %v, want 24h", got)
	}
	if got := cfg.GetInt("modules.otpauth.max_attempts"); got != 3 {
		t.Fatalf("max attempts = %d, want 3", got)
	}
	if got := string(cfg.GetBinary("modules.otpauth.secret")); got != "secret" {
		t.Fatalf("secret = %q, want %q", got, "secret")
	}
	if got := cfg.GetSecond("missing.key"); got != 0 {
		t.Fatalf("missing key = %v, want 0", got)
	}
}

func TestViperGetArray(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	tests := []struct {
		name string
		key  string
		want []string
	}{
		{name: "comma separated string", key: "app.server.cors", want: []string{"http://a.test", "http://b.test"}},
		{name: "yaml sequence", key: "instrument.log_mask_fields", want: []string{"code", "token"}},
		{name: "missing", key: "nope", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cfg.GetArray(tt.key)
			if len(got) != len(tt.want) {
				t.Fatalf("GetArray(%q) = %v, want %v", tt.key, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("GetArray(%q)[%d] = %q, want %q", tt.key, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestViperEnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("OTPGATE_MODULES_OTPAUTH_MAX_ATTEMPTS", "5")
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML))
	if err != nil {
		t.Fatalf("NewViperFromBytes: %v", err)
	}

	// Act
	got := cfg.GetInt("modules.otpauth.max_attempts")

	// Assert
	if got != 5 {
		t.Fatalf("max attempts = %d, want 5 from env", got)
	}
}

func TestNewViperFromBytesRequiresType(t *testing.T) {
	if _, err := NewViperFromBytes(" ", []byte("a: 1")); err == nil {
		t.Fatal("expected error for empty config type")
	}
}

func TestLoadDotEnvIgnoresMissingFile(t *testing.T) {
	if err := LoadDotEnv(t.TempDir() + "/does-not-exist.env"); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
}
