// Package svgtree models vector template markup as a generic labeled tree
// and provides the pure transforms that bake a theme into it.
//
// # Tree
//
// [Parse] reads SVG (or any XML) into a tree of [Node] values. Element and
// attribute names keep the prefixes they were written with, so a tree
// renders back with [Node.Render] into markup that any consumer reading the
// original would accept. Character data stays in document order as text
// nodes between the elements, so mixed content survives a round trip.
//
// # Transforms
//
// [Recolor] and [Prune] never mutate their input; they return a new tree.
// [Apply] combines both for a [theme.Theme] and reports which layers it
// touched:
//
//	root, err := svgtree.Parse(r)
//	baked, report := svgtree.Apply(root, theme.Build(note))
//
// Layer ids named by the theme but absent from the template are skipped
// and listed in [Report.Missing]. Missing layers are never an error.
package svgtree
