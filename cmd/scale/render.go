package main

import (
	"fmt"
	"io"

	"github.com/gordian-engine/scale"
)

// renderTree writes one line per node, root first,
// with box-drawing connectors tracing the child structure.
// Left children connect with a tee, right children with a corner,
// so sibling order stays readable at any depth.
func renderTree(w io.Writer, t *scale.Tree, full bool) {
	renderNode(w, t.Root(), "", false, full)
}

func renderNode(w io.Writer, n *scale.Node, prefix string, isLeft bool, full bool) {
	connector := "└──"
	if isLeft {
		connector = "├──"
	}
	fmt.Fprintf(w, "%s%s%s\n", prefix, connector, renderDigest(n.Digest(), full))

	if n.IsLeaf() {
		return
	}

	childPrefix := prefix + "    "
	if isLeft {
		childPrefix = prefix + "│   "
	}
	renderNode(w, n.Left(), childPrefix, true, full)
	renderNode(w, n.Right(), childPrefix, false, full)
}

// renderDigest shortens a digest's hex form
// to its first three and last four characters.
func renderDigest(d scale.Digest, full bool) string {
	s := d.String()
	if full || len(s) < 8 {
		return s
	}
	return s[:3] + "..." + s[len(s)-4:]
}
