package masking

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d{4}[ -]?){3}\d{4}\b`)
	phonePattern = regexp.MustCompile(`(?:\+?1[-. ]?)?(?:\(\d{3}\)|\d{3})[-. ]?\d{3}[-. ]?\d{4}\b`)
)

// DefaultRules returns the detection rules in priority order. The order is a
// contract: a credit card number must be consumed by the credit_card rule
// before the phone rule gets a chance to miscapture part of it, and each rule
// runs over the text already rewritten by the rules before it.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "email", Pattern: emailPattern, Replace: maskEmail},
		{Name: "ssn", Pattern: ssnPattern, Replace: maskSSN},
		{Name: "credit_card", Pattern: cardPattern, Replace: maskDigitsKeepLast4},
		{Name: "phone", Pattern: phonePattern, Replace: maskDigitsKeepLast4},
	}
}

// maskEmail keeps the first and last character of the local part and of the
// domain name, and the full top-level domain: jane.doe@example.com becomes
// j******e@e*****e.com. Parts of two characters or fewer are fully masked.
func maskEmail(match string, maskChar byte) string {
	at := strings.LastIndexByte(match, '@')
	local, domain := match[:at], match[at+1:]

	dot := strings.LastIndexByte(domain, '.')
	name, tld := domain[:dot], domain[dot:]

	return maskKeepEnds(local, maskChar) + "@" + maskKeepEnds(name, maskChar) + tld
}

// maskSSN hard-replaces the number, keeping only the last four digits.
func maskSSN(match string, _ byte) string {
	return "XXX-XX-" + match[len(match)-4:]
}

// maskDigitsKeepLast4 replaces every digit except the last four with the
// mask character, preserving separators.
func maskDigitsKeepLast4(match string, maskChar byte) string {
	digits := 0
	for i := 0; i < len(match); i++ {
		if match[i] >= '0' && match[i] <= '9' {
			digits++
		}
	}

	out := []byte(match)
	seen := 0
	for i := 0; i < len(out); i++ {
		if out[i] >= '0' && out[i] <= '9' {
			seen++
			if seen <= digits-4 {
				out[i] = maskChar
			}
		}
	}
	return string(out)
}

// maskKeepEnds masks the interior of a span. Spans too short to have an
// interior worth keeping are masked entirely.
func maskKeepEnds(s string, maskChar byte) string {
	if len(s) <= 2 {
		return strings.Repeat(string(maskChar), len(s))
	}
	return s[:1] + strings.Repeat(string(maskChar), len(s)-2) + s[len(s)-1:]
}
