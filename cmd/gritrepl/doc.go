/*
Package gritrepl/main provides an interactive command line tool for
experimenting with incremental parsing. Each line the user enters is
parsed against a small built-in token grammar; consecutive lines are
diffed, so the parser is handed an edit description plus the previous
tree and reuses whatever the edit left untouched. The resulting syntax
tree is printed after every line, making lexing, error recovery and
subtree reuse visible interactively.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/

package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'grit.repl'
func tracer() tracing.Trace {
	return tracing.Select("grit.repl")
}
