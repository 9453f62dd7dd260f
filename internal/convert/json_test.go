package convert

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatJSON(t *testing.T) {
	t.Run("Pretty", func(t *testing.T) {
		got, err := FormatJSON(`{"b":1,"a":[1,2]}`, 2)
		if err != nil {
			t.Fatalf("FormatJSON failed: %v", err)
		}
		want := "{\n  \"b\": 1,\n  \"a\": [\n    1,\n    2\n  ]\n}"
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("KeyOrderPreserved", func(t *testing.T) {
		got, err := FormatJSON(`{"z":1,"a":2}`, 2)
		if err != nil {
			t.Fatalf("FormatJSON failed: %v", err)
		}
		if strings.Index(got, `"z"`) > strings.Index(got, `"a"`) {
			t.Errorf("Key order changed: %s", got)
		}
	})

	t.Run("Compact", func(t *testing.T) {
		got, err := FormatJSON("{\n  \"a\": 1\n}", 0)
		if err != nil {
			t.Fatalf("FormatJSON failed: %v", err)
		}
		if got != `{"a":1}` {
			t.Errorf("Got %q, want %q", got, `{"a":1}`)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once, err := FormatJSON(`{"a":[1,{"b":"c"}],"d":null}`, 4)
		if err != nil {
			t.Fatalf("FormatJSON failed: %v", err)
		}
		twice, err := FormatJSON(once, 4)
		if err != nil {
			t.Fatalf("FormatJSON on formatted output failed: %v", err)
		}
		if once != twice {
			t.Errorf("Formatting is not idempotent:\n%s\nvs\n%s", once, twice)
		}
	})

	t.Run("NumericLiteralsUntouched", func(t *testing.T) {
		got, err := FormatJSON(`{"n":1.50,"big":12345678901234567890}`, 0)
		if err != nil {
			t.Fatalf("FormatJSON failed: %v", err)
		}
		if !strings.Contains(got, "1.50") || !strings.Contains(got, "12345678901234567890") {
			t.Errorf("Numeric literals were rewritten: %s", got)
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		_, err := FormatJSON(`{"a":`, 2)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("Expected ParseError, got %v", err)
		}
		if parseErr.Format != "json" {
			t.Errorf("Wrong format tag: %s", parseErr.Format)
		}
		if parseErr.Line == 0 {
			t.Error("ParseError should carry a line number")
		}
	})

	t.Run("IndentOutOfRange", func(t *testing.T) {
		if _, err := FormatJSON(`{}`, 9); err == nil {
			t.Error("Expected error for indent 9")
		}
		if _, err := FormatJSON(`{}`, -1); err == nil {
			t.Error("Expected error for negative indent")
		}
	})
}

func TestValidateJSON(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		result := ValidateJSON(`{"a":[1,2,3]}`)
		if !result.Valid {
			t.Errorf("Valid document reported invalid: %s", result.Error)
		}
		if result.Error != "" {
			t.Errorf("Valid result should have empty error, got %q", result.Error)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		result := ValidateJSON(`{"a":}`)
		if result.Valid {
			t.Error("Malformed document reported valid")
		}
		if result.Error == "" {
			t.Error("Invalid result should carry an error message")
		}
	})

	t.Run("ScalarDocument", func(t *testing.T) {
		if result := ValidateJSON(`42`); !result.Valid {
			t.Errorf("Scalar document should be valid: %s", result.Error)
		}
	})
}

func TestParseJSON(t *testing.T) {
	t.Run("TrailingGarbage", func(t *testing.T) {
		if _, err := parseJSON(`{"a":1} extra`); err == nil {
			t.Error("Expected error for trailing data")
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		if _, err := parseJSON(``); err == nil {
			t.Error("Expected error for empty input")
		}
	})

	t.Run("OrderedKeys", func(t *testing.T) {
		node, err := parseJSON(`{"z":1,"m":2,"a":3}`)
		if err != nil {
			t.Fatalf("parseJSON failed: %v", err)
		}
		keys := node.Keys()
		if len(keys) != 3 || keys[0] != "z" || keys[1] != "m" || keys[2] != "a" {
			t.Errorf("Key order not preserved: %v", keys)
		}
	})
}

func TestLineColumn(t *testing.T) {
	text := "ab\ncde\nf"
	line, col := lineColumn(text, 5)
	if line != 2 || col != 3 {
		t.Errorf("lineColumn(5) = (%d, %d), want (2, 3)", line, col)
	}
	line, col = lineColumn(text, 1)
	if line != 1 || col != 2 {
		t.Errorf("lineColumn(1) = (%d, %d), want (1, 2)", line, col)
	}
}
