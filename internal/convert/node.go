package convert

// Kind identifies the variant held by a Node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Node is the generic in-memory document representation shared by the JSON,
// XML, and YAML converters. Object keys keep insertion order so conversions
// that depend on element ordering stay deterministic.
type Node struct {
	Kind Kind

	Str  string
	Num  float64
	Raw  string // original numeric literal, preferred on re-serialization
	Bool bool

	Items []*Node

	keys   []string
	fields map[string]*Node
}

// NullNode returns a null Node.
func NullNode() *Node {
	return &Node{Kind: KindNull}
}

// BoolNode returns a boolean Node.
func BoolNode(v bool) *Node {
	return &Node{Kind: KindBool, Bool: v}
}

// NumberNode returns a numeric Node. The raw literal is kept so values like
// "30" or "1e9" re-serialize exactly as they were written.
func NumberNode(v float64, raw string) *Node {
	return &Node{Kind: KindNumber, Num: v, Raw: raw}
}

// StringNode returns a string Node.
func StringNode(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// ArrayNode returns an array Node holding the given items.
func ArrayNode(items ...*Node) *Node {
	return &Node{Kind: KindArray, Items: items}
}

// ObjectNode returns an empty object Node.
func ObjectNode() *Node {
	return &Node{Kind: KindObject, fields: make(map[string]*Node)}
}

// Set stores a field on an object Node, appending the key on first use so
// iteration order matches insertion order.
func (n *Node) Set(key string, value *Node) {
	if n.fields == nil {
		n.fields = make(map[string]*Node)
	}
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = value
}

// Get returns the field stored under key, if any.
func (n *Node) Get(key string) (*Node, bool) {
	v, ok := n.fields[key]
	return v, ok
}

// Keys returns the object keys in insertion order.
func (n *Node) Keys() []string {
	return n.keys
}

// Len returns the number of object fields or array items.
func (n *Node) Len() int {
	if n.Kind == KindArray {
		return len(n.Items)
	}
	return len(n.keys)
}

// Equal reports whether two nodes represent the same value. Object key order
// is ignored; it exists for serialization, not identity.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Kind != other.Kind {
		return false
	}

	switch n.Kind {
	case KindNull:
		return true
	case KindBool:
		return n.Bool == other.Bool
	case KindNumber:
		return n.Num == other.Num
	case KindString:
		return n.Str == other.Str
	case KindArray:
		if len(n.Items) != len(other.Items) {
			return false
		}
		for i := range n.Items {
			if !n.Items[i].Equal(other.Items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(n.keys) != len(other.keys) {
			return false
		}
		for _, key := range n.keys {
			ov, ok := other.fields[key]
			if !ok || !n.fields[key].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}
