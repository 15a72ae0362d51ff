package app

import (
	"testing"
	"time"
)

func TestEnvHelpersDefaults(t *testing.T) {
	if got := EnvString("GRADNET_TEST_UNSET", "fallback"); got != "fallback" {
		t.Fatalf("EnvString default: %q", got)
	}
	if got := EnvBool("GRADNET_TEST_UNSET", true); !got {
		t.Fatalf("EnvBool default: %v", got)
	}
	if got := EnvInt("GRADNET_TEST_UNSET", 7); got != 7 {
		t.Fatalf("EnvInt default: %d", got)
	}
	if got := EnvDuration("GRADNET_TEST_UNSET", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration default: %v", got)
	}
	if got := EnvStringList("GRADNET_TEST_UNSET", []string{"a"}); len(got) != 1 || got[0] != "a" {
		t.Fatalf("EnvStringList default: %v", got)
	}
}

func TestEnvHelpersParse(t *testing.T) {
	t.Setenv("GRADNET_TEST_STR", " value ")
	if got := EnvString("GRADNET_TEST_STR", ""); got != "value" {
		t.Fatalf("EnvString: %q", got)
	}

	t.Setenv("GRADNET_TEST_BOOL", "false")
	if got := EnvBool("GRADNET_TEST_BOOL", true); got {
		t.Fatalf("EnvBool: %v", got)
	}

	t.Setenv("GRADNET_TEST_INT", "42")
	if got := EnvInt("GRADNET_TEST_INT", 1); got != 42 {
		t.Fatalf("EnvInt: %d", got)
	}

	t.Setenv("GRADNET_TEST_INT_BAD", "-3")
	if got := EnvInt("GRADNET_TEST_INT_BAD", 1); got != 1 {
		t.Fatalf("EnvInt negative must fall back: %d", got)
	}

	t.Setenv("GRADNET_TEST_DUR", "90s")
	if got := EnvDuration("GRADNET_TEST_DUR", time.Minute); got != 90*time.Second {
		t.Fatalf("EnvDuration: %v", got)
	}

	t.Setenv("GRADNET_TEST_LIST", "a, b ,,c")
	got := EnvStringList("GRADNET_TEST_LIST", nil)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("EnvStringList: %v", got)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.HTTPAddr == "" {
		t.Fatalf("HTTPAddr must have a default")
	}
	if cfg.ReadHeaderTimeout <= 0 || cfg.MaxHeaderBytes <= 0 {
		t.Fatalf("timeouts must default to positive values: %+v", cfg)
	}
}

func TestValidateSecurityConfigOff(t *testing.T) {
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: false}); err != nil {
		t.Fatalf("policy off must pass: %v", err)
	}
}

func TestValidateSecurityConfigMissingKey(t *testing.T) {
	t.Setenv("GRADNET_TOKEN_HMAC_KEY", "")
	if err := ValidateSecurityConfig(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected error when HMAC key is missing")
	}
}
