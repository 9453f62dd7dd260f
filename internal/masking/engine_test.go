package masking

import (
	"testing"

	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/config"
	"github.com/textmill/textmill/internal/logger"
)

func newTestEngine(t *testing.T, cfg config.MaskingConfig) *Engine {
	t.Helper()
	engine, err := New(cfg, &logger.Logger{Logger: zap.NewNop()})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func defaultTestConfig() config.MaskingConfig {
	return config.MaskingConfig{
		Enabled:   true,
		Detectors: []string{"all"},
		MaskChar:  "*",
	}
}

func TestMaskEmail(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	t.Run("KeepsEndsAndTLD", func(t *testing.T) {
		result := engine.Mask("Contact jane.doe@example.com today")
		want := "Contact j******e@e*****e.com today"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
		if len(result.Findings) != 1 || result.Findings[0].EntityType != "email" || result.Findings[0].Count != 1 {
			t.Errorf("Unexpected findings: %+v", result.Findings)
		}
	})

	t.Run("ShortLocalPartFullyMasked", func(t *testing.T) {
		result := engine.Mask("ab@example.com")
		want := "**@e*****e.com"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})

	t.Run("MultipleOccurrences", func(t *testing.T) {
		result := engine.Mask("a@xy.io and bob@site.org")
		if result.Findings[0].Count != 2 {
			t.Errorf("Expected count 2, got %d", result.Findings[0].Count)
		}
	})
}

func TestMaskSSN(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	result := engine.Mask("SSN: 123-45-6789")
	want := "SSN: XXX-XX-6789"
	if result.MaskedText != want {
		t.Errorf("Got %q, want %q", result.MaskedText, want)
	}
	if result.Findings[0].EntityType != "ssn" {
		t.Errorf("Unexpected entity type: %s", result.Findings[0].EntityType)
	}
}

func TestMaskCreditCard(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	t.Run("SpaceSeparated", func(t *testing.T) {
		result := engine.Mask("card 4111 1111 1111 1234")
		want := "card **** **** **** 1234"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})

	t.Run("DashSeparated", func(t *testing.T) {
		result := engine.Mask("4111-1111-1111-1234")
		want := "****-****-****-1234"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})

	t.Run("NoSeparators", func(t *testing.T) {
		result := engine.Mask("4111111111111234")
		want := "************1234"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})

	t.Run("CardNotDoubleCountedAsPhone", func(t *testing.T) {
		result := engine.Mask("4111-1111-1111-1234")
		for _, f := range result.Findings {
			if f.EntityType == "phone" {
				t.Error("Card number also reported as phone")
			}
		}
	})
}

func TestMaskPhone(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	t.Run("Parenthesized", func(t *testing.T) {
		result := engine.Mask("call (555) 123-4567")
		want := "call (***) ***-4567"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})

	t.Run("WithCountryCode", func(t *testing.T) {
		result := engine.Mask("+1-555-123-4567")
		want := "+*-***-***-4567"
		if result.MaskedText != want {
			t.Errorf("Got %q, want %q", result.MaskedText, want)
		}
	})
}

func TestMaskMixedText(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	result := engine.Mask("jane.doe@example.com, SSN 123-45-6789")
	want := "j******e@e*****e.com, SSN XXX-XX-6789"
	if result.MaskedText != want {
		t.Errorf("Got %q, want %q", result.MaskedText, want)
	}

	// Findings come back in rule priority order.
	if len(result.Findings) != 2 {
		t.Fatalf("Expected 2 findings, got %+v", result.Findings)
	}
	if result.Findings[0].EntityType != "email" || result.Findings[1].EntityType != "ssn" {
		t.Errorf("Findings out of priority order: %+v", result.Findings)
	}
	if result.Original != "jane.doe@example.com, SSN 123-45-6789" {
		t.Errorf("Original text not preserved: %q", result.Original)
	}
}

func TestMaskWithCustomChar(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	result := engine.MaskWith("jane.doe@example.com", '#')
	want := "j######e@e#####e.com"
	if result.MaskedText != want {
		t.Errorf("Got %q, want %q", result.MaskedText, want)
	}
}

func TestConfiguredMaskChar(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.MaskChar = "x"
	engine := newTestEngine(t, cfg)

	result := engine.Mask("4111111111111234")
	if result.MaskedText != "xxxxxxxxxxxx1234" {
		t.Errorf("Got %q", result.MaskedText)
	}
}

func TestInvalidMaskChar(t *testing.T) {
	log := &logger.Logger{Logger: zap.NewNop()}

	for _, maskChar := range []string{"**", " ", "\t"} {
		cfg := defaultTestConfig()
		cfg.MaskChar = maskChar
		if _, err := New(cfg, log); err == nil {
			t.Errorf("Expected error for mask char %q", maskChar)
		}
	}
}

func TestDetectorSelection(t *testing.T) {
	t.Run("OnlyEmail", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.Detectors = []string{"email"}
		engine := newTestEngine(t, cfg)

		result := engine.Mask("a@xy.io SSN 123-45-6789")
		if result.MaskedText != "*@**.io SSN 123-45-6789" {
			t.Errorf("Got %q", result.MaskedText)
		}
	})

	t.Run("UnknownDetector", func(t *testing.T) {
		cfg := defaultTestConfig()
		cfg.Detectors = []string{"passport"}
		if _, err := New(cfg, &logger.Logger{Logger: zap.NewNop()}); err == nil {
			t.Error("Expected error for unknown detector")
		}
	})

	t.Run("EnabledRulesOrder", func(t *testing.T) {
		engine := newTestEngine(t, defaultTestConfig())
		rules := engine.EnabledRules()
		want := []string{"email", "ssn", "credit_card", "phone"}
		if len(rules) != len(want) {
			t.Fatalf("Got %v", rules)
		}
		for i := range want {
			if rules[i] != want[i] {
				t.Errorf("Rules out of order: %v", rules)
				break
			}
		}
	})

	t.Run("DisableRule", func(t *testing.T) {
		engine := newTestEngine(t, defaultTestConfig())
		if err := engine.DisableRule("phone"); err != nil {
			t.Fatalf("DisableRule failed: %v", err)
		}
		result := engine.Mask("(555) 123-4567")
		if result.MaskedText != "(555) 123-4567" {
			t.Errorf("Disabled rule still fired: %q", result.MaskedText)
		}
	})
}

func TestMaskDisabledEngine(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Enabled = false
	engine := newTestEngine(t, cfg)

	text := "jane.doe@example.com 123-45-6789"
	result := engine.Mask(text)
	if result.MaskedText != text {
		t.Errorf("Disabled engine modified text: %q", result.MaskedText)
	}
	if len(result.Findings) != 0 {
		t.Errorf("Disabled engine reported findings: %+v", result.Findings)
	}
}

func TestMaskNoPII(t *testing.T) {
	engine := newTestEngine(t, defaultTestConfig())

	text := "nothing sensitive in here"
	result := engine.Mask(text)
	if result.MaskedText != text {
		t.Errorf("Clean text modified: %q", result.MaskedText)
	}
	if len(result.Findings) != 0 {
		t.Errorf("Findings for clean text: %+v", result.Findings)
	}
}

func TestScrubHeaders(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.HeaderScrubbing.Enabled = true
	cfg.HeaderScrubbing.Headers = []string{"authorization", "x-api-key"}
	engine := newTestEngine(t, cfg)

	headers := map[string][]string{
		"Authorization": {"Bearer secret"},
		"X-Api-Key":     {"abc123"},
		"Content-Type":  {"application/json"},
	}
	scrubbed := engine.ScrubHeaders(headers)

	if scrubbed["Authorization"][0] != "[REDACTED]" {
		t.Errorf("Authorization not scrubbed: %v", scrubbed["Authorization"])
	}
	if scrubbed["X-Api-Key"][0] != "[REDACTED]" {
		t.Errorf("X-Api-Key not scrubbed: %v", scrubbed["X-Api-Key"])
	}
	if scrubbed["Content-Type"][0] != "application/json" {
		t.Errorf("Content-Type should pass through: %v", scrubbed["Content-Type"])
	}
}
