package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/stackpm/pkg/tree"
)

type graph struct {
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Reference string `json:"reference,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// WriteJSON encodes root as indented node-link JSON and writes it to w.
// Nodes are numbered in depth-first order starting with the root at "n0".
func WriteJSON(root *tree.Node, w io.Writer) error {
	var out graph
	out.Nodes = []node{}
	out.Edges = []edge{}

	var visit func(n *tree.Node) string
	visit = func(n *tree.Node) string {
		id := fmt.Sprintf("n%d", len(out.Nodes))
		out.Nodes = append(out.Nodes, node{ID: id, Name: n.Name, Reference: n.Reference})
		for _, c := range n.Children {
			out.Edges = append(out.Edges, edge{From: id, To: visit(c)})
		}
		return id
	}
	if root != nil {
		visit(root)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes root to a JSON file at path.
func ExportJSON(root *tree.Node, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(root, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
