package config

import "testing"

func TestGetDefaults(t *testing.T) {
	cfg := GetDefaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("Default port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Convert.DefaultIndent != 2 {
		t.Errorf("Default indent = %d, want 2", cfg.Convert.DefaultIndent)
	}
	if cfg.Convert.DefaultRootName != "root" {
		t.Errorf("Default root name = %q, want root", cfg.Convert.DefaultRootName)
	}
	if cfg.Masking.MaskChar != "*" {
		t.Errorf("Default mask char = %q, want *", cfg.Masking.MaskChar)
	}
	if cfg.Cache.Enabled || cfg.History.Enabled {
		t.Error("Cache and history should be disabled by default")
	}

	if err := validateConfig(cfg); err != nil {
		t.Errorf("Defaults should validate: %v", err)
	}
}

func TestValidateConfig(t *testing.T) {
	t.Run("InvalidPort", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.Port = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for port 0")
		}
		cfg.Server.Port = 70000
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for port 70000")
		}
	})

	t.Run("IndentOutOfRange", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Convert.DefaultIndent = 9
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for indent 9")
		}
		cfg.Convert.DefaultIndent = -1
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for negative indent")
		}
	})

	t.Run("IndentZeroAllowed", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Convert.DefaultIndent = 0
		if err := validateConfig(cfg); err != nil {
			t.Errorf("Indent 0 should be valid: %v", err)
		}
	})

	t.Run("BadMaskChar", func(t *testing.T) {
		cfg := GetDefaults()
		for _, maskChar := range []string{"", "ab", " "} {
			cfg.Masking.MaskChar = maskChar
			if err := validateConfig(cfg); err == nil {
				t.Errorf("Expected error for mask char %q", maskChar)
			}
		}
	})

	t.Run("BadRateLimit", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Server.RateLimit.RequestsPerSec = 0
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for zero rate with rate limiting enabled")
		}
		cfg.Server.RateLimit.Enabled = false
		if err := validateConfig(cfg); err != nil {
			t.Errorf("Disabled rate limiting should skip the check: %v", err)
		}
	})

	t.Run("BadLogging", func(t *testing.T) {
		cfg := GetDefaults()
		cfg.Logging.Level = "verbose"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown log level")
		}

		cfg = GetDefaults()
		cfg.Logging.Format = "xml"
		if err := validateConfig(cfg); err == nil {
			t.Error("Expected error for unknown log format")
		}
	})
}
