// Package io provides JSON import and export for dependency trees.
//
// # JSON Format
//
// Trees are written as node-link JSON so external tools can consume them
// without understanding nesting:
//
//	{
//	  "nodes": [
//	    {"id": "n0", "name": "app"},
//	    {"id": "n1", "name": "left-pad", "reference": "1.3.0"}
//	  ],
//	  "edges": [
//	    {"from": "n0", "to": "n1"}
//	  ]
//	}
//
// Node IDs identify positions, not packages: a package installed in two
// places appears as two nodes with the same name and reference. The first
// node is the root and has no reference. Edges are listed in child order,
// which [ReadJSON] preserves.
//
// # Import
//
//	root, err := io.ImportJSON("tree.json")
//
// Import validates the structure: unique IDs, edges between known nodes,
// exactly one parent per non-root node and no cycles.
//
// # Export
//
//	err := io.ExportJSON(root, "tree.json")
//
// Export followed by import yields a tree [tree.Equal] to the original.
//
// [tree.Equal]: github.com/matzehuels/stackpm/pkg/tree.Equal
package io
