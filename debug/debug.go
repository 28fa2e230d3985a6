/*
Package debug provides developer-facing renderings of a grit parse: a
pterm tree dump of a finished subtree.Pool tree, a pterm table summarizing
live GSS versions, and a Graphviz dot-graph writer for the GSS itself.
None of this is exercised by the driver's own parsing logic; it exists
purely as a developer convenience, in the same spirit as Graphviz
state-machine dumps.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package debug

import (
	"fmt"
	"io"

	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pterm/pterm"
)

// tracer traces with key "grit.debug".
func tracer() tracing.Trace {
	return tracing.Select("grit.debug")
}

// Tree renders root as an indented pterm tree, labeling each node with its
// symbol name (via lang.SymbolName) and byte span, and prints it to
// pterm's default writer. Mirrors trepl's "tree" REPL command.
func Tree(pool *subtree.Pool, lang table.Language, root subtree.ID, label string) {
	if label != "" {
		pterm.Println(label)
	}
	ll := leveledNode(pool, lang, root, pterm.LeveledList{}, 0)
	node := pterm.NewTreeFromLeveledList(ll)
	if err := pterm.DefaultTree.WithRoot(node).Render(); err != nil {
		tracer().Errorf("debug.Tree: render: %v", err)
	}
}

func leveledNode(pool *subtree.Pool, lang table.Language, id subtree.ID, ll pterm.LeveledList, level int) pterm.LeveledList {
	if id == subtree.Nil {
		return append(ll, pterm.LeveledListItem{Level: level, Text: "missing"})
	}
	ll = append(ll, pterm.LeveledListItem{Level: level, Text: nodeLabel(pool, lang, id)})
	for _, c := range pool.Children(id) {
		ll = leveledNode(pool, lang, c, ll, level+1)
	}
	return ll
}

func nodeLabel(pool *subtree.Pool, lang table.Language, id subtree.ID) string {
	name := symbolName(pool, lang, id)
	size := pool.Size(id)
	flags := flagsString(pool.Flags(id))
	if flags == "" {
		return fmt.Sprintf("%s [%d bytes]", name, size.Bytes)
	}
	return fmt.Sprintf("%s [%d bytes] %s", name, size.Bytes, flags)
}

func symbolName(pool *subtree.Pool, lang table.Language, id subtree.ID) string {
	if subtree.IsErrorSymbol(pool.Symbol(id)) {
		return "ERROR"
	}
	if subtree.IsErrorRepeatSymbol(pool.Symbol(id)) {
		return "ERROR_REPEAT"
	}
	return lang.SymbolName(table.Symbol(pool.Symbol(id)))
}

func flagsString(f subtree.Flags) string {
	var s string
	add := func(bit subtree.Flags, name string) {
		if f.Has(bit) {
			s += name
		}
	}
	add(subtree.FlagExtra, "x")
	add(subtree.FlagIsError, "e")
	add(subtree.FlagMissing, "m")
	add(subtree.FlagIsFragile, "f")
	if s == "" {
		return ""
	}
	return "(" + s + ")"
}

// VersionSummary renders one pterm table row per live GSS version,
// showing state, byte position, error cost, dynamic precedence and
// paused/in-error status.
func VersionSummary(versions []*gss.Version) {
	data := pterm.TableData{{"version", "state", "position", "cost", "prec", "error", "paused"}}
	for i, v := range versions {
		data = append(data, []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("%d", v.State),
			fmt.Sprintf("%v", v.Position),
			fmt.Sprintf("%d", v.ErrorCost),
			fmt.Sprintf("%d", v.DynPrecedenceSum),
			fmt.Sprintf("%v", v.IsInError),
			fmt.Sprintf("%v", v.Paused),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		tracer().Errorf("debug.VersionSummary: render: %v", err)
	}
}

// WriteDot writes a Graphviz dot rendering of the live GSS to w: one node
// per arena slot still holding a live stack node, edges to its parents,
// and a distinguished node per version's current top(s).
func WriteDot(w io.Writer, versions []*gss.Version, graph *gss.Graph) {
	fmt.Fprint(w, "digraph {\n")
	fmt.Fprint(w, "graph [splines=true, fontname=Helvetica, fontsize=10];\n")
	fmt.Fprint(w, "node [shape=Mrecord, style=filled, fontname=Helvetica, fontsize=10];\n")
	fmt.Fprint(w, "edge [fontname=Helvetica, fontsize=10];\n\n")

	tops := map[gss.NodeID]bool{}
	for _, v := range versions {
		for _, t := range v.Tops() {
			tops[t] = true
		}
	}
	for i := 0; i < graph.NodeCount(); i++ {
		id := gss.NodeID(i)
		if !graph.NodeLive(id) {
			continue
		}
		color := "white"
		if tops[id] {
			color = "lightgray"
		}
		fmt.Fprintf(w, "n%03d [fillcolor=%s label=\"{%03d | state:%d}\"]\n",
			id, color, id, graph.NodeState(id))
		for _, p := range graph.NodeParents(id) {
			if p == gss.Root {
				continue
			}
			fmt.Fprintf(w, "n%03d -> n%03d\n", id, p)
		}
	}
	fmt.Fprint(w, "}\n")
}
