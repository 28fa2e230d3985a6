/*
Package grit implements an incremental, error-recovering GLR parser engine.

grit accepts a compiled parse table (see package table), an external scanner
adapter (see package extscanner) and a source text, and produces a concrete
syntax tree that accurately reflects the input even when the input is
malformed. A parser may be re-invoked with a previous tree plus an edit
description, reusing unchanged subtrees so reparsing a small edit takes time
proportional to the edit rather than to the whole document.

Package structure is as follows:

■ span: positions, lengths, ranges and edit descriptions, re-exported
here as type aliases.

■ table: the read-only contract a compiled parse table implements.

■ subtree: a reference-counted pool of immutable syntax nodes.

■ lexer: a positional byte reader over the caller's input callback, with
support for disjoint included byte ranges.

■ lexmode: the default internal lexer, backed by a lexmachine DFA, plus
keyword-capture fallback.

■ extscanner: a façade over grammar-supplied external scanner hooks, run
either natively or through a wasm store.

■ gss: the graph-structured parse stack — versions, pop/merge/pause,
recovery summaries.

■ reuse: a cursor that walks a previous parse tree in source order, offering
reusable subtrees to the driver.

■ cache: a one-slot memo of the most recently lexed token.

■ driver: the parser driver itself — the advance loop, reduce/shift/accept/
recover dispatch, error recovery, stack condensation and tree rebalancing.

■ debug: developer-facing tree and GSS visualizers.

The root package ties these together into Parser, the orchestrator clients
call.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package grit
