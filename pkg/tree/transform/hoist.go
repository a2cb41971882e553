package transform

import "github.com/matzehuels/stackpm/pkg/tree"

// Hoist returns a hoisted copy of root. The input tree is not modified.
func Hoist(root *tree.Node) *tree.Node {
	if root == nil {
		return nil
	}
	return hoist(root.Clone())
}

// hoist rewrites n in place; n must not share nodes with any other tree.
func hoist(n *tree.Node) *tree.Node {
	for i, c := range n.Children {
		n.Children[i] = hoist(c)
	}

	direct := make(map[string]*tree.Node, len(n.Children))
	for _, c := range n.Children {
		if _, seen := direct[c.Name]; !seen {
			direct[c.Name] = c
		}
	}

	snapshot := append([]*tree.Node(nil), n.Children...)
	for _, c := range snapshot {
		kept := c.Children[:0:0]
		for _, g := range c.Children {
			existing, ok := direct[g.Name]
			switch {
			case !ok:
				n.Children = append(n.Children, g)
				direct[g.Name] = g
			case existing.Reference == g.Reference:
			default:
				kept = append(kept, g)
			}
		}
		if len(c.Children) > 0 {
			c.Children = kept
		}
	}
	return n
}
