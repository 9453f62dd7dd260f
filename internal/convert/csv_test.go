package convert

import (
	"errors"
	"testing"
)

func TestParseCSV(t *testing.T) {
	t.Run("BasicRows", func(t *testing.T) {
		rows := ParseCSV("name,city\nJane,Paris\n")
		if len(rows) != 2 {
			t.Fatalf("Expected 2 rows, got %d", len(rows))
		}
		if rows[0][0] != "name" || rows[1][1] != "Paris" {
			t.Errorf("Unexpected cells: %v", rows)
		}
	})

	t.Run("QuotedFieldWithComma", func(t *testing.T) {
		rows := ParseCSV(`Jane,"New York, NY",30`)
		if len(rows[0]) != 3 {
			t.Fatalf("Expected 3 fields, got %d: %v", len(rows[0]), rows[0])
		}
		if rows[0][1] != "New York, NY" {
			t.Errorf("Quoted field mangled: %q", rows[0][1])
		}
	})

	t.Run("BlankLinesDropped", func(t *testing.T) {
		rows := ParseCSV("a,b\n\n   \nc,d\n")
		if len(rows) != 2 {
			t.Errorf("Expected blank lines dropped, got %d rows", len(rows))
		}
	})

	t.Run("FieldsTrimmed", func(t *testing.T) {
		rows := ParseCSV("  a  ,  b  ")
		if rows[0][0] != "a" || rows[0][1] != "b" {
			t.Errorf("Fields not trimmed: %v", rows[0])
		}
	})

	t.Run("CRLFHandled", func(t *testing.T) {
		rows := ParseCSV("a,b\r\nc,d\r\n")
		if len(rows) != 2 || rows[1][1] != "d" {
			t.Errorf("CRLF rows mangled: %v", rows)
		}
	})
}

func TestSerializeCSV(t *testing.T) {
	got := SerializeCSV([][]string{{"name", "city"}, {"Jane", "New York, NY"}})
	want := "\"name\",\"city\"\n\"Jane\",\"New York, NY\""
	if got != want {
		t.Errorf("SerializeCSV = %q, want %q", got, want)
	}
}

func TestCSVToJSON(t *testing.T) {
	t.Run("WithHeaders", func(t *testing.T) {
		got, err := CSVToJSON("name,age\nJane,30\nBob,25", true, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		want := `[{"name":"Jane","age":"30"},{"name":"Bob","age":"25"}]`
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	})

	t.Run("WithoutHeaders", func(t *testing.T) {
		got, err := CSVToJSON("a,b\nc,d", false, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		want := `[["a","b"],["c","d"]]`
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	})

	t.Run("ShortRowPadded", func(t *testing.T) {
		got, err := CSVToJSON("a,b,c\n1,2", true, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		want := `[{"a":"1","b":"2","c":""}]`
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	})

	t.Run("SurplusCellsDropped", func(t *testing.T) {
		got, err := CSVToJSON("a,b\n1,2,3", true, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		want := `[{"a":"1","b":"2"}]`
		if got != want {
			t.Errorf("Got %s, want %s", got, want)
		}
	})

	t.Run("ValuesStayStrings", func(t *testing.T) {
		got, err := CSVToJSON("n\n42", true, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		if got != `[{"n":"42"}]` {
			t.Errorf("Numeric-looking cell should stay a string: %s", got)
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		got, err := CSVToJSON("", true, 0)
		if err != nil {
			t.Fatalf("CSVToJSON failed: %v", err)
		}
		if got != "[]" {
			t.Errorf("Empty input should yield [], got %s", got)
		}
	})
}

func TestJSONToCSV(t *testing.T) {
	t.Run("ArrayOfObjects", func(t *testing.T) {
		got, err := JSONToCSV(`[{"name":"Jane","age":30},{"name":"Bob","age":25}]`)
		if err != nil {
			t.Fatalf("JSONToCSV failed: %v", err)
		}
		want := "\"name\",\"age\"\n\"Jane\",\"30\"\n\"Bob\",\"25\""
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("HeaderUnionFirstSeenOrder", func(t *testing.T) {
		got, err := JSONToCSV(`[{"a":1,"b":2},{"b":3,"c":4}]`)
		if err != nil {
			t.Fatalf("JSONToCSV failed: %v", err)
		}
		want := "\"a\",\"b\",\"c\"\n\"1\",\"2\",\"\"\n\"\",\"3\",\"4\""
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("ArrayOfArrays", func(t *testing.T) {
		got, err := JSONToCSV(`[["a","b"],["c","d"]]`)
		if err != nil {
			t.Fatalf("JSONToCSV failed: %v", err)
		}
		want := "\"a\",\"b\"\n\"c\",\"d\""
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("NullBecomesEmpty", func(t *testing.T) {
		got, err := JSONToCSV(`[{"a":null,"b":true}]`)
		if err != nil {
			t.Fatalf("JSONToCSV failed: %v", err)
		}
		want := "\"a\",\"b\"\n\"\",\"true\""
		if got != want {
			t.Errorf("Got %q, want %q", got, want)
		}
	})

	t.Run("TopLevelObjectRejected", func(t *testing.T) {
		_, err := JSONToCSV(`{"a":1}`)
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("Expected FormatError, got %v", err)
		}
	})

	t.Run("NestedCellRejected", func(t *testing.T) {
		_, err := JSONToCSV(`[{"a":{"nested":1}}]`)
		var formatErr *FormatError
		if !errors.As(err, &formatErr) {
			t.Fatalf("Expected FormatError, got %v", err)
		}
	})

	t.Run("MalformedInput", func(t *testing.T) {
		_, err := JSONToCSV(`[{"a":`)
		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			t.Fatalf("Expected ParseError, got %v", err)
		}
	})

	t.Run("EmptyArray", func(t *testing.T) {
		got, err := JSONToCSV(`[]`)
		if err != nil {
			t.Fatalf("JSONToCSV failed: %v", err)
		}
		if got != "" {
			t.Errorf("Empty array should yield empty text, got %q", got)
		}
	})
}

func TestCSVJSONRoundTrip(t *testing.T) {
	original := "\"name\",\"city\"\n\"Jane\",\"New York, NY\"\n\"Bob\",\"Paris\""

	asJSON, err := CSVToJSON(original, true, 2)
	if err != nil {
		t.Fatalf("CSVToJSON failed: %v", err)
	}
	back, err := JSONToCSV(asJSON)
	if err != nil {
		t.Fatalf("JSONToCSV failed: %v", err)
	}
	if back != original {
		t.Errorf("Round trip changed data:\n%s\nwant:\n%s", back, original)
	}
}
