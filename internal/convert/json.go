package convert

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// MinIndent and MaxIndent bound the accepted indentation width; 0 emits
	// compact output for the JSON and XML serializers.
	MinIndent = 0
	MaxIndent = 8
	// DefaultIndent is applied when callers do not specify a width.
	DefaultIndent = 2
)

// checkIndent validates an indentation width against the supported range.
func checkIndent(indent int) error {
	if indent < MinIndent || indent > MaxIndent {
		return fmt.Errorf("indent must be between %d and %d, got %d", MinIndent, MaxIndent, indent)
	}
	return nil
}

// FormatJSON re-serializes JSON text with the given indentation width. An
// indent of 0 compacts the document. The operation is idempotent: formatting
// already-formatted output is a no-op. Malformed input yields a *ParseError
// carrying the native parser's diagnostic.
func FormatJSON(text string, indent int) (string, error) {
	if err := checkIndent(indent); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	src := []byte(text)
	var err error
	if indent == 0 {
		err = json.Compact(&buf, src)
	} else {
		err = json.Indent(&buf, src, "", strings.Repeat(" ", indent))
	}
	if err != nil {
		return "", jsonParseError(err, text)
	}
	return buf.String(), nil
}

// ValidateJSON performs a parse-only dry run and reports the outcome without
// throwing. The input is never mutated.
func ValidateJSON(text string) ValidationResult {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return ValidationResult{Valid: false, Error: jsonParseError(err, text).Error()}
	}
	return ValidationResult{Valid: true}
}

// jsonParseError wraps an encoding/json error as a *ParseError, recovering
// line/column coordinates from the syntax error offset where available.
func jsonParseError(err error, text string) *ParseError {
	pe := &ParseError{Format: "json", Message: err.Error()}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		pe.Offset = syntaxErr.Offset
		pe.Line, pe.Column = lineColumn(text, syntaxErr.Offset)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		pe.Offset = typeErr.Offset
		pe.Line, pe.Column = lineColumn(text, typeErr.Offset)
	}
	return pe
}

// parseJSON decodes JSON text into the generic Node representation. Unlike
// json.Unmarshal into a map, the token walk preserves object key order.
func parseJSON(text string) (*Node, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	node, err := decodeJSONValue(dec)
	if err != nil {
		return nil, jsonParseError(err, text)
	}

	// Reject trailing tokens after the first document.
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = fmt.Errorf("unexpected data after top-level value")
		}
		return nil, jsonParseError(err, text)
	}
	return node, nil
}

func decodeJSONValue(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("unexpected end of JSON input")
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := ObjectNode()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is not a string")
				}
				value, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key, value)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return obj, nil
		case '[':
			arr := ArrayNode()
			for dec.More() {
				item, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				arr.Items = append(arr.Items, item)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return StringNode(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return NumberNode(f, t.String()), nil
	case bool:
		return BoolNode(t), nil
	case nil:
		return NullNode(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// encodeJSON serializes a Node to JSON text with the given indent width,
// emitting object keys in insertion order.
func encodeJSON(n *Node, indent int) (string, error) {
	if err := checkIndent(indent); err != nil {
		return "", err
	}
	var b strings.Builder
	writeJSONNode(&b, n, indent, 0)
	return b.String(), nil
}

func writeJSONNode(b *strings.Builder, n *Node, indent, depth int) {
	switch n.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		b.WriteString(strconv.FormatBool(n.Bool))
	case KindNumber:
		b.WriteString(numberLiteral(n))
	case KindString:
		b.WriteString(quoteJSONString(n.Str))
	case KindArray:
		if len(n.Items) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONNewline(b, indent, depth+1)
			writeJSONNode(b, item, indent, depth+1)
		}
		writeJSONNewline(b, indent, depth)
		b.WriteByte(']')
	case KindObject:
		if len(n.keys) == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONNewline(b, indent, depth+1)
			b.WriteString(quoteJSONString(key))
			b.WriteByte(':')
			if indent > 0 {
				b.WriteByte(' ')
			}
			writeJSONNode(b, n.fields[key], indent, depth+1)
		}
		writeJSONNewline(b, indent, depth)
		b.WriteByte('}')
	}
}

func writeJSONNewline(b *strings.Builder, indent, depth int) {
	if indent == 0 {
		return
	}
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", indent*depth))
}

// quoteJSONString renders a string literal with standard JSON escaping.
func quoteJSONString(s string) string {
	encoded, err := json.Marshal(s)
	if err != nil {
		// json.Marshal of a string cannot fail; keep a readable fallback.
		return strconv.Quote(s)
	}
	return string(encoded)
}

// numberLiteral prefers the original literal so parsed numbers re-serialize
// byte-for-byte.
func numberLiteral(n *Node) string {
	if n.Raw != "" {
		return n.Raw
	}
	return strconv.FormatFloat(n.Num, 'g', -1, 64)
}
