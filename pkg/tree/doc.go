// Package tree provides the dependency tree produced by resolution.
//
// # Overview
//
// A [Node] is one installed package: a name, a pinned reference and its
// children. The tree is positional, not a graph: the same (name, reference)
// pair may appear at several places, and the same name may appear with
// different references. Position in the tree is install position, so a child
// of node N is installed inside N's dependency container.
//
// The root node is the project itself and carries an empty reference.
//
// # Rendering
//
// [Format] prints an indented text view, [ToDOT] emits Graphviz DOT and
// [RenderSVG] lays that out with Graphviz:
//
//	fmt.Print(tree.Format(root))
//	svg, err := tree.RenderSVG(ctx, tree.ToDOT(root))
//
// # Transformations
//
// The [transform] subpackage holds the hoisting optimizer.
//
// [transform]: github.com/matzehuels/stackpm/pkg/tree/transform
package tree
