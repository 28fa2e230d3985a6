package driver

import (
	"os"
	"strings"
	"testing"

	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"golang.org/x/tools/txtar"

	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
)

// TestDriverCorpus runs every (input, expected-leaves) pair from
// testdata/corpus.txtar through the S -> a b fixture grammar and checks
// that the finished tree covers the whole input and yields the expected
// leaves in source order, error spans included.
func TestDriverCorpus(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "grit.driver")
	defer teardown()
	//
	data, err := os.ReadFile("testdata/corpus.txtar")
	if err != nil {
		t.Fatalf("reading corpus: %v", err)
	}
	archive := txtar.Parse(data)
	cases := map[string]map[string]string{}
	for _, f := range archive.Files {
		name, part, ok := strings.Cut(f.Name, "/")
		if !ok {
			t.Fatalf("corpus file %q is not <case>/<part>", f.Name)
		}
		if cases[name] == nil {
			cases[name] = map[string]string{}
		}
		cases[name][part] = strings.TrimRight(string(f.Data), "\n")
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			input, expected := c["input"], c["leaves"]
			lang, bank := abLanguage(false)
			pool := subtree.NewPool()
			d := New(lang, pool, bank, nil, stringInput(input), Options{})

			tree, err := d.Run()
			if err != nil {
				t.Fatalf("Run(%q): %v", input, err)
			}
			if got := pool.Footprint(tree); got.Bytes != uint32(len(input)) {
				t.Fatalf("Run(%q): expected %d bytes covered, got %d", input, len(input), got.Bytes)
			}
			if got := strings.Join(leafNames(pool, lang, tree), " "); got != expected {
				t.Fatalf("Run(%q): expected leaves %q, got %q", input, expected, got)
			}
		})
	}
}

// leafNames walks the tree in source order and names each leaf, writing
// an error leaf as ERROR the way the corpus does. It folds nothing: a run
// of unrecognized bytes is already a single error leaf, since lexOne
// accumulates the run into one.
func leafNames(pool *subtree.Pool, lang table.Language, id subtree.ID) []string {
	if pool.ChildCount(id) == 0 {
		if pool.Has(id, subtree.FlagIsError) {
			return []string{"ERROR"}
		}
		return []string{lang.SymbolName(table.Symbol(pool.Symbol(id)))}
	}
	var out []string
	for i := 0; i < pool.ChildCount(id); i++ {
		out = append(out, leafNames(pool, lang, pool.Child(id, i))...)
	}
	return out
}
