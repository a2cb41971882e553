package tree

import (
	"fmt"
	"strings"
)

// Node is one package position in a dependency tree.
type Node struct {
	Name      string
	Reference string // pinned version, local path or URL; empty for the root
	Children  []*Node
}

// New returns a node with the given children.
func New(name, reference string, children ...*Node) *Node {
	return &Node{Name: name, Reference: reference, Children: children}
}

// ID returns "name@reference", or just the name for the root.
func (n *Node) ID() string {
	if n.Reference == "" {
		return n.Name
	}
	return n.Name + "@" + n.Reference
}

// IsRoot reports whether n has no reference.
func (n *Node) IsRoot() bool { return n.Reference == "" }

// Child returns the direct child called name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Walk calls fn for n and every descendant in pre-order, passing the
// depth (0 for n). Returning false from fn skips that node's children.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Count returns the number of nodes below n, excluding n itself.
func (n *Node) Count() int {
	total := 0
	for _, c := range n.Children {
		total += 1 + c.Count()
	}
	return total
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Name: n.Name, Reference: n.Reference}
	if n.Children != nil {
		out.Children = make([]*Node, len(n.Children))
		for i, c := range n.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// Equal reports whether a and b have the same shape, identities and
// child order. Nil and empty child lists are equal.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Name != b.Name || a.Reference != b.Reference || len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Format renders n as an indented list, one node per line.
func Format(n *Node) string {
	var b strings.Builder
	n.Walk(func(node *Node, depth int) bool {
		if depth == 0 {
			b.WriteString(node.ID())
		} else {
			fmt.Fprintf(&b, "%s└─ %s", strings.Repeat("   ", depth-1), node.ID())
		}
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// String returns a compact one-line form: name@ref{child,child}.
func (n *Node) String() string {
	if len(n.Children) == 0 {
		return n.ID()
	}
	parts := make([]string, len(n.Children))
	for i, c := range n.Children {
		parts[i] = c.String()
	}
	return n.ID() + "{" + strings.Join(parts, ",") + "}"
}
