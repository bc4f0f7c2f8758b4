package command

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// Metadata is the frontmatter block of a command document. It keeps the
// original key order, styles and comments so rendering is lossless. The
// zero value is empty metadata.
type Metadata struct {
	node *yaml.Node // MappingNode, or nil when empty
}

// ParseFrontmatter splits doc into metadata and body. The document must
// open with "---"; the block ends at the next "---". Without both
// delimiters the whole document is the body. A block that is not valid
// YAML, or not a mapping, degrades to empty metadata. The body of a
// delimited document is trimmed.
func ParseFrontmatter(doc string) (Metadata, string) {
	if !strings.HasPrefix(doc, delimiter) {
		return Metadata{}, doc
	}
	end := strings.Index(doc[len(delimiter):], delimiter)
	if end < 0 {
		return Metadata{}, doc
	}
	end += len(delimiter)

	block := strings.TrimSpace(doc[len(delimiter):end])
	body := strings.TrimSpace(doc[end+len(delimiter):])

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(block), &root); err != nil {
		return Metadata{}, body
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return Metadata{}, body
	}
	m := root.Content[0]
	if m.Kind != yaml.MappingNode {
		return Metadata{}, body
	}
	return Metadata{node: m}, body
}

// IsEmpty reports whether there are no keys.
func (m Metadata) IsEmpty() bool {
	return m.node == nil || len(m.node.Content) == 0
}

// Keys returns top-level keys in document order.
func (m Metadata) Keys() []string {
	if m.node == nil {
		return nil
	}
	keys := make([]string, 0, len(m.node.Content)/2)
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		keys = append(keys, m.node.Content[i].Value)
	}
	return keys
}

// Has reports whether key is present.
func (m Metadata) Has(key string) bool {
	return m.value(key) != nil
}

// String returns the scalar value of key.
func (m Metadata) String(key string) (string, bool) {
	v := m.value(key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	return v.Value, true
}

// Decode decodes the whole block into v.
func (m Metadata) Decode(v any) error {
	if m.node == nil {
		return nil
	}
	return m.node.Decode(v)
}

// Marshal encodes the block as YAML with two-space indentation. Empty
// metadata encodes to nil.
func (m Metadata) Marshal() ([]byte, error) {
	if m.IsEmpty() {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m Metadata) value(key string) *yaml.Node {
	if m.node == nil {
		return nil
	}
	for i := 0; i+1 < len(m.node.Content); i += 2 {
		if m.node.Content[i].Value == key {
			return m.node.Content[i+1]
		}
	}
	return nil
}

// clone deep-copies the node tree so callers can rewrite values without
// touching the source document.
func (m Metadata) clone() Metadata {
	if m.node == nil {
		return m
	}
	return Metadata{node: cloneNode(m.node, map[*yaml.Node]*yaml.Node{})}
}

func cloneNode(n *yaml.Node, seen map[*yaml.Node]*yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if c, ok := seen[n]; ok {
		return c
	}
	c := *n
	seen[n] = &c
	c.Alias = cloneNode(n.Alias, seen)
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child, seen)
		}
	}
	return &c
}
