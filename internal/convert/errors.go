package convert

import "fmt"

// ParseError reports malformed input in one of the supported text formats.
// Message carries the underlying parser's diagnostic verbatim; Line and
// Column are populated when the parser provides them.
type ParseError struct {
	Format  string // "json", "xml", "yaml", or "csv"
	Message string
	Line    int
	Column  int
	Offset  int64
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("invalid %s: %s (line %d, column %d)", e.Format, e.Message, e.Line, e.Column)
	}
	if e.Line > 0 {
		return fmt.Sprintf("invalid %s: %s (line %d)", e.Format, e.Message, e.Line)
	}
	return fmt.Sprintf("invalid %s: %s", e.Format, e.Message)
}

// FormatError reports structurally valid input that cannot be re-serialized
// in the requested target format, such as nested values in a CSV cell.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// ValidationResult is the non-throwing outcome of a validate operation.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// lineColumn converts a byte offset into 1-based line/column coordinates.
func lineColumn(text string, offset int64) (int, int) {
	if offset < 0 || offset > int64(len(text)) {
		return 0, 0
	}
	line, col := 1, 1
	for _, b := range []byte(text[:offset]) {
		if b == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}
