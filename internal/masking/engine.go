package masking

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/textmill/textmill/internal/config"
	"github.com/textmill/textmill/internal/logger"
)

// Engine handles PII detection and masking
type Engine struct {
	rules    []Rule
	enabled  map[string]bool
	maskChar byte
	logger   *logger.Logger
	config   config.MaskingConfig
}

// New creates a new masking engine instance
func New(cfg config.MaskingConfig, log *logger.Logger) (*Engine, error) {
	maskChar := byte('*')
	if cfg.MaskChar != "" {
		if len(cfg.MaskChar) != 1 || cfg.MaskChar[0] < '!' || cfg.MaskChar[0] > '~' {
			return nil, fmt.Errorf("mask char must be a single printable ASCII character, got %q", cfg.MaskChar)
		}
		maskChar = cfg.MaskChar[0]
	}

	engine := &Engine{
		rules:    DefaultRules(),
		enabled:  make(map[string]bool),
		maskChar: maskChar,
		logger:   log,
		config:   cfg,
	}

	// Configure enabled detectors
	if err := engine.configureDetectors(cfg.Detectors); err != nil {
		return nil, fmt.Errorf("failed to configure detectors: %w", err)
	}

	log.Info("Masking engine initialized",
		zap.Int("total_rules", len(engine.rules)),
		zap.Int("enabled_rules", engine.countEnabledRules()),
		zap.String("mask_char", string(maskChar)),
	)

	return engine, nil
}

// configureDetectors enables/disables detectors based on configuration
func (e *Engine) configureDetectors(detectors []string) error {
	// Disable all rules by default
	for _, rule := range e.rules {
		e.enabled[rule.Name] = false
	}

	// Enable specified detectors
	for _, detector := range detectors {
		if detector == "all" {
			// Enable all detectors
			for _, rule := range e.rules {
				e.enabled[rule.Name] = true
			}
			continue
		}

		// Enable specific detector
		found := false
		for _, rule := range e.rules {
			if rule.Name == detector {
				e.enabled[rule.Name] = true
				found = true
				break
			}
		}

		if !found {
			return fmt.Errorf("unknown detector: %s", detector)
		}
	}

	return nil
}

// Mask runs the text through every enabled rule in priority order. Each rule
// rewrites the string produced by the rules before it, so a span consumed by
// an earlier rule is never reconsidered by a later one.
func (e *Engine) Mask(text string) Result {
	return e.MaskWith(text, e.maskChar)
}

// MaskWith is Mask with a per-call mask character override.
func (e *Engine) MaskWith(text string, maskChar byte) Result {
	if !e.config.Enabled {
		return Result{
			MaskedText: text,
			Findings:   []Finding{},
			Original:   text,
		}
	}

	maskedText := text
	findings := make([]Finding, 0)

	for _, rule := range e.rules {
		if !e.enabled[rule.Name] {
			continue
		}

		count := len(rule.Pattern.FindAllStringIndex(maskedText, -1))
		if count == 0 {
			continue
		}

		findings = append(findings, Finding{
			EntityType: rule.Name,
			Count:      count,
		})

		replace := rule.Replace
		maskedText = rule.Pattern.ReplaceAllStringFunc(maskedText, func(match string) string {
			return replace(match, maskChar)
		})

		e.logger.Debug("PII detected and masked",
			zap.String("entity_type", rule.Name),
			zap.Int("count", count),
		)
	}

	return Result{
		MaskedText: maskedText,
		Findings:   findings,
		Original:   text,
	}
}

// ScrubHeaders replaces values of sensitive HTTP headers before logging
func (e *Engine) ScrubHeaders(headers map[string][]string) map[string][]string {
	if !e.config.Enabled || !e.config.HeaderScrubbing.Enabled {
		return headers
	}

	scrubbed := make(map[string][]string)
	for key, values := range headers {
		if e.isSensitiveHeader(key) {
			scrubbed[key] = []string{"[REDACTED]"}
			e.logger.Debug("Header scrubbed", zap.String("header", key))
		} else {
			scrubbed[key] = values
		}
	}

	return scrubbed
}

// isSensitiveHeader checks if a header should be scrubbed
func (e *Engine) isSensitiveHeader(header string) bool {
	headerLower := strings.ToLower(header)

	for _, sensitiveHeader := range e.config.HeaderScrubbing.Headers {
		if strings.Contains(headerLower, strings.ToLower(sensitiveHeader)) {
			return true
		}
	}

	return false
}

// countEnabledRules returns the number of enabled detection rules
func (e *Engine) countEnabledRules() int {
	count := 0
	for _, enabled := range e.enabled {
		if enabled {
			count++
		}
	}
	return count
}

// EnabledRules returns a list of enabled rule names in priority order
func (e *Engine) EnabledRules() []string {
	var enabled []string
	for _, rule := range e.rules {
		if e.enabled[rule.Name] {
			enabled = append(enabled, rule.Name)
		}
	}
	return enabled
}

// EnableRule enables a specific detection rule
func (e *Engine) EnableRule(ruleName string) error {
	for _, rule := range e.rules {
		if rule.Name == ruleName {
			e.enabled[ruleName] = true
			e.logger.Info("Detection rule enabled", zap.String("rule", ruleName))
			return nil
		}
	}
	return fmt.Errorf("unknown rule: %s", ruleName)
}

// DisableRule disables a specific detection rule
func (e *Engine) DisableRule(ruleName string) error {
	if _, exists := e.enabled[ruleName]; !exists {
		return fmt.Errorf("unknown rule: %s", ruleName)
	}

	e.enabled[ruleName] = false
	e.logger.Info("Detection rule disabled", zap.String("rule", ruleName))
	return nil
}
