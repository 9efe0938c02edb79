package adl

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Node is one element of an architecture description document. The loader
// applies no schema: every tag, attribute and text run is kept as-is and
// interpreted later by the typed builders.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	Text     string
}

type Attr struct {
	Name  string
	Value string
}

// LoadDocument reads and parses the document at the given path.
func LoadDocument(filename string) (*Node, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(filename); err != nil {
		return nil, &ParseError{Source: filename, Err: err}
	}
	return fromDocument(filename, doc)
}

func ParseDocument(r io.Reader) (*Node, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, &ParseError{Source: "<input>", Err: err}
	}
	return fromDocument("<input>", doc)
}

func ParseDocumentBytes(src []byte) (*Node, error) {
	return ParseDocument(bytes.NewReader(src))
}

func fromDocument(source string, doc *etree.Document) (*Node, error) {
	root := doc.Root()
	if root == nil {
		return nil, &ParseError{Source: source, Err: fmt.Errorf("document has no root element")}
	}
	return fromElement(root), nil
}

func fromElement(el *etree.Element) *Node {
	n := &Node{
		Tag:  el.Tag,
		Text: el.Text(),
	}
	for _, a := range el.Attr {
		n.Attrs = append(n.Attrs, Attr{Name: a.Key, Value: a.Value})
	}
	for _, child := range el.ChildElements() {
		n.Children = append(n.Children, fromElement(child))
	}
	return n
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Name is the "name" attribute, which almost every entity in the document
// uses as its identity.
func (n *Node) Name() string {
	v, _ := n.Attr("name")
	return v
}

// Child returns the first direct child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

func (n *Node) ChildrenNamed(tag string) []*Node {
	if n == nil {
		return nil
	}
	var ret []*Node
	for _, c := range n.Children {
		if c.Tag == tag {
			ret = append(ret, c)
		}
	}
	return ret
}

// Find walks down a path of tags, taking the first match at each step.
func (n *Node) Find(path ...string) *Node {
	cur := n
	for _, tag := range path {
		cur = cur.Child(tag)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Value returns the scalar carried by the node. Scalars appear either as the
// element's own text or wrapped in a single <int> or <str> child.
func (n *Node) Value() string {
	if n == nil {
		return ""
	}
	if v := strings.TrimSpace(n.Text); v != "" {
		return v
	}
	for _, c := range n.Children {
		if isScalarTag(c.Tag) {
			return strings.TrimSpace(c.Text)
		}
	}
	return ""
}

// Values returns every scalar child, for list-valued elements.
func (n *Node) Values() []string {
	if n == nil {
		return nil
	}
	var ret []string
	for _, c := range n.Children {
		if isScalarTag(c.Tag) {
			ret = append(ret, strings.TrimSpace(c.Text))
		}
	}
	if len(ret) == 0 {
		if v := strings.TrimSpace(n.Text); v != "" {
			ret = append(ret, v)
		}
	}
	return ret
}

// ChildValue is Value of the named child; ok is false when the child is
// absent.
func (n *Node) ChildValue(tag string) (string, bool) {
	c := n.Child(tag)
	if c == nil {
		return "", false
	}
	return c.Value(), true
}

func (n *Node) ChildInt(tag string) (int64, bool, error) {
	raw, ok := n.ChildValue(tag)
	if !ok || raw == "" {
		return 0, false, nil
	}
	v, err := parseInt(raw)
	if err != nil {
		return 0, true, fmt.Errorf("<%s> of %q: %w", tag, n.Name(), err)
	}
	return v, true, nil
}

func (n *Node) ChildBool(tag string) bool {
	raw, ok := n.ChildValue(tag)
	if !ok {
		return false
	}
	return parseBool(raw)
}

// Cores returns every core described by the document. The root is either the
// top-level data element wrapping <cores>, <cores> itself, or a lone <core>.
func Cores(root *Node) []*Node {
	switch root.Tag {
	case "core":
		return []*Node{root}
	case "cores":
		return root.ChildrenNamed("core")
	}
	return root.Find("cores").ChildrenNamed("core")
}

func isScalarTag(tag string) bool {
	return tag == "int" || tag == "str"
}

func parseInt(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 0, 64)
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "t", "y":
		return true
	}
	return false
}
