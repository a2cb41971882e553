package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/stackpm/pkg/tree"
)

// ReadJSON decodes a node-link JSON tree from r.
//
// The first node is the root. ReadJSON returns an error if the JSON is
// malformed, a node ID repeats, an edge references an unknown node, a node
// has more than one parent, or some node is unreachable from the root.
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*tree.Node, error) {
	var data graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(data.Nodes) == 0 {
		return nil, fmt.Errorf("decode: no nodes")
	}

	nodes := make(map[string]*tree.Node, len(data.Nodes))
	for _, n := range data.Nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node %q: missing id", n.Name)
		}
		if _, dup := nodes[n.ID]; dup {
			return nil, fmt.Errorf("node %s: duplicate id", n.ID)
		}
		nodes[n.ID] = tree.New(n.Name, n.Reference)
	}

	rootID := data.Nodes[0].ID
	parent := make(map[string]string, len(data.Edges))
	for _, e := range data.Edges {
		from, ok := nodes[e.From]
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown node %s", e.From, e.To, e.From)
		}
		to, ok := nodes[e.To]
		if !ok {
			return nil, fmt.Errorf("edge %s->%s: unknown node %s", e.From, e.To, e.To)
		}
		if e.To == rootID {
			return nil, fmt.Errorf("edge %s->%s: root cannot have a parent", e.From, e.To)
		}
		if p, seen := parent[e.To]; seen {
			return nil, fmt.Errorf("edge %s->%s: node already has parent %s", e.From, e.To, p)
		}
		parent[e.To] = e.From
		from.Children = append(from.Children, to)
	}

	// With one parent per node and none for the root, a cycle can only
	// exist among nodes the root cannot reach.
	root := nodes[rootID]
	reached := 0
	root.Walk(func(*tree.Node, int) bool {
		reached++
		return true
	})
	if reached != len(nodes) {
		return nil, fmt.Errorf("decode: %d of %d nodes unreachable from root", len(nodes)-reached, len(nodes))
	}
	return root, nil
}

// ImportJSON reads the JSON tree file at path.
func ImportJSON(path string) (*tree.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}
