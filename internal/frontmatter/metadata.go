package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/starford/agx/internal/apperr"
)

// Metadata is a parsed metadata block. It keeps the yaml.v3 node tree so that
// key order, comments and scalar styles of untouched entries survive a
// parse/serialize cycle.
type Metadata struct {
	doc *yaml.Node
}

// Pair is one key/value of a mapping appended with AppendMapping.
type Pair struct {
	Key   string
	Value string
}

// New returns empty metadata.
func New() *Metadata {
	return &Metadata{doc: emptyDocument()}
}

func emptyDocument() *yaml.Node {
	return &yaml.Node{
		Kind:    yaml.DocumentNode,
		Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
	}
}

// Parse decodes a metadata block. An empty block yields empty metadata; any
// other content must be a YAML mapping with unique keys.
func Parse(block string) (*Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidMetadata, err)
	}

	switch {
	case doc.Kind == 0:
		return New(), nil
	case doc.Kind == yaml.DocumentNode && len(doc.Content) == 0,
		doc.Kind == yaml.DocumentNode && doc.Content[0].Tag == "!!null":
		doc.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
	case doc.Kind != yaml.DocumentNode || doc.Content[0].Kind != yaml.MappingNode:
		return nil, fmt.Errorf("%w: metadata block is not a key/value mapping", apperr.ErrInvalidMetadata)
	}

	root := doc.Content[0]
	seen := make(map[string]struct{}, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k := root.Content[i].Value
		if _, dup := seen[k]; dup {
			return nil, fmt.Errorf("%w: duplicate key `%s`", apperr.ErrInvalidMetadata, k)
		}
		seen[k] = struct{}{}
	}

	return &Metadata{doc: &doc}, nil
}

// Serialize encodes m back into a metadata block ending with a newline.
func Serialize(m *Metadata) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.doc); err != nil {
		return "", fmt.Errorf("frontmatter: encode metadata: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("frontmatter: encode metadata: %w", err)
	}
	return buf.String(), nil
}

// Decode unmarshals the metadata into v.
func (m *Metadata) Decode(v any) error {
	if err := m.doc.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidMetadata, err)
	}
	return nil
}

func (m *Metadata) root() *yaml.Node {
	return m.doc.Content[0]
}

// Keys returns the top-level keys in document order.
func (m *Metadata) Keys() []string {
	root := m.root()
	keys := make([]string, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		keys = append(keys, root.Content[i].Value)
	}
	return keys
}

func (m *Metadata) lookup(key string) *yaml.Node {
	root := m.root()
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			return root.Content[i+1]
		}
	}
	return nil
}

// set replaces the value of key in place, or appends key at the end.
func (m *Metadata) set(key string, value *yaml.Node) {
	root := m.root()
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == key {
			old := root.Content[i+1]
			value.LineComment = old.LineComment
			value.HeadComment = old.HeadComment
			value.FootComment = old.FootComment
			root.Content[i+1] = value
			return
		}
	}
	root.Content = append(root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

// Has reports whether key is present.
func (m *Metadata) Has(key string) bool {
	return m.lookup(key) != nil
}

// String returns the scalar value of key. Missing keys, nulls and
// non-scalar values report false.
func (m *Metadata) String(key string) (string, bool) {
	n := resolveAlias(m.lookup(key))
	if n == nil || n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", false
	}
	return n.Value, true
}

// StringList returns the string items of a sequence field. A missing key
// yields nil; a present key that is not a sequence of scalars fails with
// ErrInvalidMetadata.
func (m *Metadata) StringList(key string) ([]string, error) {
	n := resolveAlias(m.lookup(key))
	if n == nil {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, apperr.InvalidField(key, "exists but is not a list")
	}
	out := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		item = resolveAlias(item)
		if item.Kind != yaml.ScalarNode {
			return nil, apperr.InvalidField(key, "contains a non-scalar entry")
		}
		out = append(out, item.Value)
	}
	return out, nil
}

// SetString sets key to a double-quoted string scalar.
func (m *Metadata) SetString(key, value string) {
	m.set(key, stringNode(value))
}

// AppendUniqueString appends value to the sequence at key unless an equal
// string is already present. A missing key is created as a flow sequence.
func (m *Metadata) AppendUniqueString(key, value string) error {
	n := m.lookup(key)
	if n == nil {
		m.set(key, &yaml.Node{
			Kind:    yaml.SequenceNode,
			Tag:     "!!seq",
			Style:   yaml.FlowStyle,
			Content: []*yaml.Node{stringNode(value)},
		})
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return apperr.InvalidField(key, "exists but is not a list")
	}
	for _, item := range n.Content {
		item = resolveAlias(item)
		if item.Kind == yaml.ScalarNode && item.Value == value {
			return nil
		}
	}
	n.Content = append(n.Content, stringNode(value))
	return nil
}

// SetIntList replaces key with a flow sequence of integers.
func (m *Metadata) SetIntList(key string, values []uint64) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle}
	for _, v := range values {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!int",
			Value: strconv.FormatUint(v, 10),
		})
	}
	m.set(key, seq)
}

// AppendMapping appends a mapping built from pairs to the sequence at key,
// creating a block sequence when key is missing.
func (m *Metadata) AppendMapping(key string, pairs ...Pair) error {
	entry := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, p := range pairs {
		entry.Content = append(entry.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: p.Key},
			stringNode(p.Value),
		)
	}

	n := m.lookup(key)
	if n == nil {
		m.set(key, &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: []*yaml.Node{entry}})
		return nil
	}
	if n.Kind != yaml.SequenceNode {
		return apperr.InvalidField(key, "exists but is not a list of entries")
	}
	for _, item := range n.Content {
		if resolveAlias(item).Kind != yaml.MappingNode {
			return apperr.InvalidField(key, "contains an entry that is not a mapping")
		}
	}
	n.Content = append(n.Content, entry)
	return nil
}

func stringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: value}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}
