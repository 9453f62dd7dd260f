package convert

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MinYAMLIndent is the smallest indentation the YAML emitter accepts.
const MinYAMLIndent = 1

var yamlLinePattern = regexp.MustCompile(`line (\d+)`)

// FormatYAML reparses YAML text and re-emits it with the given indentation
// width (1-8 spaces). Comments and anchors survive the round trip because the
// document is kept as a yaml.Node tree rather than decoded into plain maps.
func FormatYAML(text string, indent int) (string, error) {
	if err := checkYAMLIndent(indent); err != nil {
		return "", err
	}

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return "", yamlParseError(err)
	}
	if doc.Kind == 0 {
		// Empty or comment-only input has nothing to re-emit.
		return "", nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(&doc); err != nil {
		return "", &FormatError{Message: fmt.Sprintf("yaml re-serialization failed: %v", err)}
	}
	if err := enc.Close(); err != nil {
		return "", &FormatError{Message: fmt.Sprintf("yaml re-serialization failed: %v", err)}
	}
	return buf.String(), nil
}

// ValidateYAML performs a parse-only dry run; no schema checking.
func ValidateYAML(text string) ValidationResult {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return ValidationResult{Valid: false, Error: yamlParseError(err).Error()}
	}
	return ValidationResult{Valid: true}
}

// YAMLToJSON converts YAML text into JSON through the shared Node
// representation, preserving mapping key order.
func YAMLToJSON(text string, indent int) (string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return "", yamlParseError(err)
	}
	if doc.Kind == 0 {
		return encodeJSON(NullNode(), indent)
	}

	node, err := yamlToNode(&doc)
	if err != nil {
		return "", err
	}
	return encodeJSON(node, indent)
}

// JSONToYAML converts JSON text into YAML emitted with the given indentation.
func JSONToYAML(text string, indent int) (string, error) {
	if err := checkYAMLIndent(indent); err != nil {
		return "", err
	}

	node, err := parseJSON(text)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(indent)
	if err := enc.Encode(nodeToYAML(node)); err != nil {
		return "", &FormatError{Message: fmt.Sprintf("yaml serialization failed: %v", err)}
	}
	if err := enc.Close(); err != nil {
		return "", &FormatError{Message: fmt.Sprintf("yaml serialization failed: %v", err)}
	}
	return buf.String(), nil
}

func checkYAMLIndent(indent int) error {
	if indent < MinYAMLIndent || indent > MaxIndent {
		return fmt.Errorf("yaml indent must be between %d and %d, got %d", MinYAMLIndent, MaxIndent, indent)
	}
	return nil
}

// yamlParseError wraps a yaml error, pulling the line number out of the
// library's "yaml: line N:" message format when present.
func yamlParseError(err error) *ParseError {
	pe := &ParseError{Format: "yaml", Message: err.Error()}
	if m := yamlLinePattern.FindStringSubmatch(err.Error()); m != nil {
		if line, convErr := strconv.Atoi(m[1]); convErr == nil {
			pe.Line = line
		}
	}
	return pe
}

// yamlToNode converts a parsed yaml.Node tree into the generic Node form.
func yamlToNode(y *yaml.Node) (*Node, error) {
	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return NullNode(), nil
		}
		return yamlToNode(y.Content[0])
	case yaml.AliasNode:
		return yamlToNode(y.Alias)
	case yaml.MappingNode:
		obj := ObjectNode()
		for i := 0; i+1 < len(y.Content); i += 2 {
			value, err := yamlToNode(y.Content[i+1])
			if err != nil {
				return nil, err
			}
			obj.Set(y.Content[i].Value, value)
		}
		return obj, nil
	case yaml.SequenceNode:
		arr := ArrayNode()
		for _, item := range y.Content {
			value, err := yamlToNode(item)
			if err != nil {
				return nil, err
			}
			arr.Items = append(arr.Items, value)
		}
		return arr, nil
	case yaml.ScalarNode:
		return yamlScalarToNode(y)
	}
	return nil, &FormatError{Message: fmt.Sprintf("unsupported yaml node kind %d", y.Kind)}
}

func yamlScalarToNode(y *yaml.Node) (*Node, error) {
	switch y.Tag {
	case "!!null":
		return NullNode(), nil
	case "!!bool":
		v, err := strconv.ParseBool(strings.ToLower(y.Value))
		if err != nil {
			return nil, &FormatError{Message: fmt.Sprintf("unsupported boolean literal %q", y.Value)}
		}
		return BoolNode(v), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(y.Value, 64)
		if err != nil {
			return nil, &FormatError{Message: fmt.Sprintf("unsupported numeric literal %q", y.Value)}
		}
		return NumberNode(f, y.Value), nil
	default:
		return StringNode(y.Value), nil
	}
}

// nodeToYAML converts the generic Node form back into a yaml.Node tree so
// the emitter keeps object key order.
func nodeToYAML(n *Node) *yaml.Node {
	switch n.Kind {
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(n.Bool)}
	case KindNumber:
		tag := "!!float"
		if isIntegerLiteral(numberLiteral(n)) {
			tag = "!!int"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: numberLiteral(n)}
	case KindString:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: n.Str}
	case KindArray:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.Items {
			seq.Content = append(seq.Content, nodeToYAML(item))
		}
		return seq
	case KindObject:
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, key := range n.keys {
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
				nodeToYAML(n.fields[key]))
		}
		return mapping
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

func isIntegerLiteral(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}
