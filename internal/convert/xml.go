package convert

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// AttributesKey holds element attributes in the JSON mapping.
	AttributesKey = "@attributes"
	// TextKey holds element text when an element also has attributes or
	// child elements.
	TextKey = "#text"
	// DefaultRootName wraps JSON documents converted to XML.
	DefaultRootName = "root"
	// arrayItemName names the elements generated for a top-level JSON array.
	arrayItemName = "item"
)

// xmlElement is the intermediate tree built from the token stream before the
// Node mapping is applied.
type xmlElement struct {
	name     string
	attrs    []xml.Attr
	children []*xmlElement
	text     strings.Builder
}

// XMLToJSON converts an XML document into its JSON object representation.
// Attributes land under "@attributes", text-only elements become scalar
// leaves, repeated sibling tags collapse into an array, and a single
// occurrence stays a plain keyed entry. The root element is treated as a pure
// wrapper: its content object is returned, which makes the mapping the exact
// inverse of JSONToXML for a fixed root name. The single-child-versus-array
// ambiguity makes the reverse direction lossy, which is accepted.
func XMLToJSON(text string, indent int) (string, error) {
	root, err := parseXML(text)
	if err != nil {
		return "", err
	}
	return encodeJSON(elementToNode(root), indent)
}

// ValidateXML performs a parse-only dry run over the document.
func ValidateXML(text string) ValidationResult {
	if _, err := parseXML(text); err != nil {
		return ValidationResult{Valid: false, Error: err.Error()}
	}
	return ValidationResult{Valid: true}
}

// parseXML builds the element tree for the document's root element.
func parseXML(text string) (*xmlElement, error) {
	dec := xml.NewDecoder(strings.NewReader(text))

	var root *xmlElement
	var stack []*xmlElement

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, xmlParseError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &xmlElement{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, &ParseError{Format: "xml", Message: "multiple root elements"}
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, &ParseError{Format: "xml", Message: fmt.Sprintf("unexpected closing tag </%s>", t.Name.Local)}
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if len(stack) != 0 {
		return nil, &ParseError{Format: "xml", Message: fmt.Sprintf("unclosed element <%s>", stack[len(stack)-1].name)}
	}
	if root == nil {
		return nil, &ParseError{Format: "xml", Message: "document has no root element"}
	}
	return root, nil
}

func xmlParseError(err error) *ParseError {
	pe := &ParseError{Format: "xml", Message: err.Error()}
	var syntaxErr *xml.SyntaxError
	if errors.As(err, &syntaxErr) {
		pe.Message = syntaxErr.Msg
		pe.Line = syntaxErr.Line
	}
	return pe
}

// elementToNode applies the XML-to-JSON mapping to one element.
func elementToNode(el *xmlElement) *Node {
	text := strings.TrimSpace(el.text.String())

	// A text-only element without attributes is a scalar leaf. An empty
	// element decodes as an empty object so that {} survives a round trip;
	// the cost is that an empty-string leaf comes back as {}.
	if len(el.children) == 0 && len(el.attrs) == 0 {
		if text == "" {
			return ObjectNode()
		}
		return inferScalar(text)
	}

	obj := ObjectNode()
	if len(el.attrs) > 0 {
		attrs := ObjectNode()
		for _, attr := range el.attrs {
			attrs.Set(attr.Name.Local, StringNode(attr.Value))
		}
		obj.Set(AttributesKey, attrs)
	}

	// Group children by tag in first-seen order; repeats become arrays.
	counts := make(map[string]int)
	for _, child := range el.children {
		counts[child.name]++
	}
	done := make(map[string]bool)
	for _, child := range el.children {
		if done[child.name] {
			continue
		}
		done[child.name] = true
		if counts[child.name] > 1 {
			arr := ArrayNode()
			for _, sibling := range el.children {
				if sibling.name == child.name {
					arr.Items = append(arr.Items, elementToNode(sibling))
				}
			}
			obj.Set(child.name, arr)
		} else {
			obj.Set(child.name, elementToNode(child))
		}
	}

	if text != "" {
		obj.Set(TextKey, inferScalar(text))
	}
	return obj
}

// inferScalar maps element text back to the JSON scalar it most plausibly
// came from. Numbers are only recognized when the literal is canonical, so
// strings like "007" survive as strings.
func inferScalar(s string) *Node {
	switch s {
	case "true":
		return BoolNode(true)
	case "false":
		return BoolNode(false)
	case "null":
		return NullNode()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if strconv.FormatFloat(f, 'f', -1, 64) == s || strconv.FormatFloat(f, 'g', -1, 64) == s {
			return NumberNode(f, s)
		}
	}
	return StringNode(s)
}

// JSONToXML converts JSON text into an XML document wrapped in a single root
// element. Objects become child elements in key order, arrays repeat their
// key's element, and scalars become text content.
func JSONToXML(text, rootName string, indent int) (string, error) {
	if err := checkIndent(indent); err != nil {
		return "", err
	}
	if rootName == "" {
		rootName = DefaultRootName
	}

	node, err := parseJSON(text)
	if err != nil {
		return "", err
	}

	// A top-level array cannot repeat the root element, so its entries are
	// wrapped as <item> children instead.
	if node.Kind == KindArray {
		wrapper := ObjectNode()
		wrapper.Set(arrayItemName, node)
		node = wrapper
	}

	var b strings.Builder
	if err := writeXMLElement(&b, rootName, node, indent, 0); err != nil {
		return "", err
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func writeXMLElement(b *strings.Builder, name string, n *Node, indent, depth int) error {
	pad := xmlPad(indent, depth)

	switch n.Kind {
	case KindObject:
		attrs, hasAttrs := n.Get(AttributesKey)
		open := "<" + name
		if hasAttrs {
			rendered, err := renderAttributes(attrs)
			if err != nil {
				return err
			}
			open += rendered
		}
		open += ">"

		// An object carrying only attributes and text stays on one line.
		if isTextOnlyObject(n, hasAttrs) {
			textNode, _ := n.Get(TextKey)
			b.WriteString(pad + open + escapeXMLText(scalarText(textNode)) + "</" + name + ">")
			writeXMLBreak(b, indent)
			return nil
		}

		b.WriteString(pad + open)
		writeXMLBreak(b, indent)
		for _, key := range n.Keys() {
			if key == AttributesKey {
				continue
			}
			field := n.fields[key]
			if key == TextKey {
				if !isScalarKind(field.Kind) {
					return &FormatError{Message: "#text must hold a scalar value"}
				}
				b.WriteString(xmlPad(indent, depth+1) + escapeXMLText(scalarText(field)))
				writeXMLBreak(b, indent)
				continue
			}
			if err := writeXMLElement(b, key, field, indent, depth+1); err != nil {
				return err
			}
		}
		b.WriteString(pad + "</" + name + ">")
		writeXMLBreak(b, indent)
	case KindArray:
		for _, item := range n.Items {
			if err := writeXMLElement(b, name, item, indent, depth); err != nil {
				return err
			}
		}
	default:
		b.WriteString(pad + "<" + name + ">" + escapeXMLText(scalarText(n)) + "</" + name + ">")
		writeXMLBreak(b, indent)
	}
	return nil
}

// isTextOnlyObject reports whether the object holds at most attributes plus a
// scalar #text entry.
func isTextOnlyObject(n *Node, hasAttrs bool) bool {
	expected := 0
	if hasAttrs {
		expected++
	}
	textNode, hasText := n.Get(TextKey)
	if !hasText {
		return false
	}
	expected++
	return len(n.keys) == expected && isScalarKind(textNode.Kind)
}

func isScalarKind(k Kind) bool {
	return k == KindNull || k == KindBool || k == KindNumber || k == KindString
}

func scalarText(n *Node) string {
	switch n.Kind {
	case KindString:
		return n.Str
	case KindNumber:
		return numberLiteral(n)
	case KindBool:
		return strconv.FormatBool(n.Bool)
	case KindNull:
		return "null"
	}
	return ""
}

func renderAttributes(attrs *Node) (string, error) {
	if attrs.Kind != KindObject {
		return "", &FormatError{Message: "@attributes must be an object"}
	}
	var b strings.Builder
	for _, key := range attrs.Keys() {
		value := attrs.fields[key]
		if !isScalarKind(value.Kind) {
			return "", &FormatError{Message: "attribute values must be scalar"}
		}
		b.WriteString(" " + key + `="` + escapeXMLAttr(scalarText(value)) + `"`)
	}
	return b.String(), nil
}

func xmlPad(indent, depth int) string {
	if indent == 0 {
		return ""
	}
	return strings.Repeat(" ", indent*depth)
}

func writeXMLBreak(b *strings.Builder, indent int) {
	if indent > 0 {
		b.WriteByte('\n')
	}
}

func escapeXMLText(s string) string {
	var buf bytes.Buffer
	// EscapeText only fails on writer errors, which bytes.Buffer never has.
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func escapeXMLAttr(s string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	).Replace(s)
}
