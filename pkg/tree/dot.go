package tree

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts a tree to Graphviz DOT. Every position gets its own
// vertex, so a package installed in two places is drawn twice.
func ToDOT(root *Node) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	next := 0
	var visit func(n *Node) string
	visit = func(n *Node) string {
		id := fmt.Sprintf("n%d", next)
		next++
		attrs := fmt.Sprintf("label=%q", n.ID())
		if n.IsRoot() {
			attrs += ", fillcolor=lightgrey"
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", id, attrs)
		for _, c := range n.Children {
			cid := visit(c)
			fmt.Fprintf(&buf, "  %s -> %s;\n", id, cid)
		}
		return id
	}
	visit(root)

	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG lays out a DOT graph with Graphviz and returns SVG bytes.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
