package convert

import (
	"errors"
	"strings"
	"testing"
)

func TestYAMLToJSON(t *testing.T) {
	t.Run("Mapping", func(t *testing.T) {
		got, err := YAMLToJSON("name: Jane\nage: 30\nactive: true\n", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		want := `{"name":"Jane","age":30,"active":true}`
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	})

	t.Run("Sequence", func(t *testing.T) {
		got, err := YAMLToJSON("tags:\n  - a\n  - b\n", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		if got != `{"tags":["a","b"]}` {
			t.Errorf("Got %s", got)
		}
	})

	t.Run("KeyOrderPreserved", func(t *testing.T) {
		got, err := YAMLToJSON("z: 1\nm: 2\na: 3\n", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		if got != `{"z":1,"m":2,"a":3}` {
			t.Errorf("Key order changed: %s", got)
		}
	})

	t.Run("NullAndQuotedString", func(t *testing.T) {
		got, err := YAMLToJSON("a: null\nb: \"30\"\n", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		if got != `{"a":null,"b":"30"}` {
			t.Errorf("Got %s", got)
		}
	})

	t.Run("Anchors", func(t *testing.T) {
		got, err := YAMLToJSON("base: &b 10\ncopy: *b\n", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		if got != `{"base":10,"copy":10}` {
			t.Errorf("Alias not resolved: %s", got)
		}
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		got, err := YAMLToJSON("", 0)
		if err != nil {
			t.Fatalf("YAMLToJSON failed: %v", err)
		}
		if got != "null" {
			t.Errorf("Empty document should map to null, got %s", got)
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		_, err := YAMLToJSON("a: [1, 2\n", 0)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("Expected ParseError, got %v", err)
		}
		if parseErr.Format != "yaml" {
			t.Errorf("Wrong format tag: %s", parseErr.Format)
		}
	})
}

func TestJSONToYAML(t *testing.T) {
	t.Run("FlatObject", func(t *testing.T) {
		got, err := JSONToYAML(`{"name":"Jane","count":2,"ok":true}`, 2)
		if err != nil {
			t.Fatalf("JSONToYAML failed: %v", err)
		}
		want := "name: Jane\ncount: 2\nok: true\n"
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("NestedAndSequence", func(t *testing.T) {
		got, err := JSONToYAML(`{"a":{"b":[1,2]}}`, 2)
		if err != nil {
			t.Fatalf("JSONToYAML failed: %v", err)
		}
		want := "a:\n  b:\n    - 1\n    - 2\n"
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("FloatKeepsDecimal", func(t *testing.T) {
		got, err := JSONToYAML(`{"f":1.5}`, 2)
		if err != nil {
			t.Fatalf("JSONToYAML failed: %v", err)
		}
		if !strings.Contains(got, "1.5") {
			t.Errorf("Float literal lost: %q", got)
		}
	})

	t.Run("IndentZeroRejected", func(t *testing.T) {
		if _, err := JSONToYAML(`{}`, 0); err == nil {
			t.Error("YAML indent 0 should be rejected")
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		_, err := JSONToYAML(`{"a"`, 2)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("Expected ParseError, got %v", err)
		}
	})
}

func TestFormatYAML(t *testing.T) {
	t.Run("Reflow", func(t *testing.T) {
		got, err := FormatYAML("a:   1\nb:  x\n", 2)
		if err != nil {
			t.Fatalf("FormatYAML failed: %v", err)
		}
		want := "a: 1\nb: x\n"
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		once, err := FormatYAML("a:\n    b:\n        - 1\n        - 2\n", 2)
		if err != nil {
			t.Fatalf("FormatYAML failed: %v", err)
		}
		twice, err := FormatYAML(once, 2)
		if err != nil {
			t.Fatalf("FormatYAML on formatted output failed: %v", err)
		}
		if once != twice {
			t.Errorf("Formatting is not idempotent:\n%q\nvs\n%q", once, twice)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		got, err := FormatYAML("", 2)
		if err != nil {
			t.Fatalf("FormatYAML failed: %v", err)
		}
		if got != "" {
			t.Errorf("Empty input should yield empty output, got %q", got)
		}
	})

	t.Run("IndentBounds", func(t *testing.T) {
		if _, err := FormatYAML("a: 1\n", 0); err == nil {
			t.Error("Indent 0 should be rejected")
		}
		if _, err := FormatYAML("a: 1\n", 9); err == nil {
			t.Error("Indent 9 should be rejected")
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		_, err := FormatYAML("a: [1, 2\n", 2)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("Expected ParseError, got %v", err)
		}
	})
}

func TestValidateYAML(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		if result := ValidateYAML("a: 1\nb:\n  - x\n"); !result.Valid {
			t.Errorf("Valid document reported invalid: %s", result.Error)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		if result := ValidateYAML("a: [1, 2\n"); result.Valid {
			t.Error("Malformed document reported valid")
		}
	})
}

func TestYAMLJSONRoundTrip(t *testing.T) {
	input := `{"name":"Jane","age":30,"tags":["a","b"],"meta":{"ok":true}}`

	asYAML, err := JSONToYAML(input, 2)
	if err != nil {
		t.Fatalf("JSONToYAML failed: %v", err)
	}
	back, err := YAMLToJSON(asYAML, 0)
	if err != nil {
		t.Fatalf("YAMLToJSON failed: %v", err)
	}
	if back != input {
		t.Errorf("Round trip changed document:\n in: %s\nout: %s\nyaml:\n%s", input, back, asYAML)
	}
}
