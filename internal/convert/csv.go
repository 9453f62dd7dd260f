package convert

import (
	"strings"
)

// ParseCSV splits raw text into rows of trimmed string cells. Blank lines are
// dropped. Within a line, commas separate fields except inside a
// double-quote-delimited span; quote characters toggle the in-quotes flag and
// are never emitted, so there is no escaped-quote handling. This intentionally
// stays looser than RFC 4180.
func ParseCSV(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitCSVLine(line))
	}
	return rows
}

// splitCSVLine tokenizes a single line using the quote-toggle rule.
func splitCSVLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	fields = append(fields, strings.TrimSpace(cur.String()))

	return fields
}

// SerializeCSV re-emits rows with every field wrapped in double quotes.
// Embedded quotes are not escaped, mirroring the parser's loose quoting; the
// round-trip guarantee only covers cells without embedded double quotes.
func SerializeCSV(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		quoted := make([]string, len(row))
		for i, cell := range row {
			quoted[i] = `"` + cell + `"`
		}
		lines = append(lines, strings.Join(quoted, ","))
	}
	return strings.Join(lines, "\n")
}

// CSVToJSON converts tabular text into JSON. With hasHeaders the first row
// supplies object keys and each remaining row becomes an object; rows shorter
// than the header are padded with empty strings and surplus cells are
// dropped. Without headers the result is an array of string arrays. Cell
// values always stay strings.
func CSVToJSON(text string, hasHeaders bool, indent int) (string, error) {
	rows := ParseCSV(text)

	root := ArrayNode()
	if !hasHeaders {
		for _, row := range rows {
			item := ArrayNode()
			for _, cell := range row {
				item.Items = append(item.Items, StringNode(cell))
			}
			root.Items = append(root.Items, item)
		}
		return encodeJSON(root, indent)
	}

	if len(rows) == 0 {
		return encodeJSON(root, indent)
	}

	headers := rows[0]
	for _, row := range rows[1:] {
		obj := ObjectNode()
		for i, header := range headers {
			if i < len(row) {
				obj.Set(header, StringNode(row[i]))
			} else {
				obj.Set(header, StringNode(""))
			}
		}
		root.Items = append(root.Items, obj)
	}
	return encodeJSON(root, indent)
}

// JSONToCSV converts a JSON array back into CSV text. An array of flat
// objects produces a header row from the union of keys in first-seen order;
// an array of arrays produces plain rows. Nested values in cells are a
// FormatError, as is any other top-level shape.
func JSONToCSV(text string) (string, error) {
	root, err := parseJSON(text)
	if err != nil {
		return "", err
	}
	if root.Kind != KindArray {
		return "", &FormatError{Message: "csv conversion requires a top-level JSON array"}
	}
	if len(root.Items) == 0 {
		return "", nil
	}

	switch root.Items[0].Kind {
	case KindObject:
		return objectRowsToCSV(root.Items)
	case KindArray:
		return arrayRowsToCSV(root.Items)
	default:
		return "", &FormatError{Message: "csv conversion requires an array of objects or an array of arrays"}
	}
}

func objectRowsToCSV(items []*Node) (string, error) {
	var headers []string
	seen := make(map[string]bool)
	for _, item := range items {
		if item.Kind != KindObject {
			return "", &FormatError{Message: "csv conversion requires every row to be an object"}
		}
		for _, key := range item.Keys() {
			if !seen[key] {
				seen[key] = true
				headers = append(headers, key)
			}
		}
	}

	rows := [][]string{headers}
	for _, item := range items {
		row := make([]string, len(headers))
		for i, key := range headers {
			field, ok := item.Get(key)
			if !ok {
				continue
			}
			cell, err := scalarString(field)
			if err != nil {
				return "", err
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return SerializeCSV(rows), nil
}

func arrayRowsToCSV(items []*Node) (string, error) {
	var rows [][]string
	for _, item := range items {
		if item.Kind != KindArray {
			return "", &FormatError{Message: "csv conversion requires every row to be an array"}
		}
		row := make([]string, 0, len(item.Items))
		for _, field := range item.Items {
			cell, err := scalarString(field)
			if err != nil {
				return "", err
			}
			row = append(row, cell)
		}
		rows = append(rows, row)
	}
	return SerializeCSV(rows), nil
}

// scalarString renders a leaf node as CSV cell text. Null becomes the empty
// string; arrays and objects cannot live in a cell.
func scalarString(n *Node) (string, error) {
	switch n.Kind {
	case KindString:
		return n.Str, nil
	case KindNumber:
		return numberLiteral(n), nil
	case KindBool:
		if n.Bool {
			return "true", nil
		}
		return "false", nil
	case KindNull:
		return "", nil
	default:
		return "", &FormatError{Message: "csv cells must be scalar values"}
	}
}
