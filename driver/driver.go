/*
Package driver implements the parser driver: the advance
loop, lexing composition, reduce, structural tie-breaking between
ambiguous versions, the two error-recovery strategies, and the
accept/condense/rebalance passes that turn a finished GSS into one
concrete-syntax tree.

# License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package driver

import (
	"time"

	"github.com/npillmayer/grit/cache"
	"github.com/npillmayer/grit/extscanner"
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/lexer"
	"github.com/npillmayer/grit/lexmode"
	"github.com/npillmayer/grit/reuse"
	"github.com/npillmayer/grit/span"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key "grit.driver".
func tracer() tracing.Trace {
	return tracing.Select("grit.driver")
}

// Driver runs one incremental parse to completion. The zero value is not
// usable; create with New.
type Driver struct {
	lang  table.Language
	pool  *subtree.Pool
	graph *gss.Graph

	versions []*gss.Version

	lex   *lexer.Lexer
	bank  *lexmode.Bank
	ext   *extscanner.Adapter
	cache *cache.TokenCache

	reuseCursor *reuse.Cursor
	oldRanges   []span.Range
	newRanges   []span.Range

	opCount     uint64
	deadline    time.Time
	hasDeadline bool
	opts        Options

	rebalanceQueue []subtree.ID

	dotWriter DotWriter
}

// DotWriter renders the GSS for debugging after each advance round
// . Root package Parser.SetDotGraphWriter wraps an io.Writer in an
// implementation that renders through debug.WriteDot.
type DotWriter interface {
	WriteDot(versions []*gss.Version, graph *gss.Graph)
}

// New creates a Driver over lang's parse table, using bank as the
// default internal lexer and ext (may be nil) as the external-scanner
// adapter.
func New(lang table.Language, pool *subtree.Pool, bank *lexmode.Bank, ext *extscanner.Adapter, input lexer.Input, opts Options) *Driver {
	d := &Driver{
		lang:  lang,
		pool:  pool,
		graph: gss.NewGraph(pool),
		bank:  bank,
		ext:   ext,
		cache: cache.New(pool),
		opts:  opts,
	}
	d.lex = lexer.New(input, opts.IncludedRanges)
	d.newRanges = opts.IncludedRanges
	if opts.Timeout > 0 {
		d.deadline = time.Now().Add(opts.Timeout)
		d.hasDeadline = true
	}
	v := d.graph.NewVersion(0)
	d.versions = []*gss.Version{v}
	return d
}

// SetOldTree seeds the incremental-reuse cursor over a previous parse's
// root, together with the ranges that tree was built under. Call before
// Run for an incremental reparse; omit for a
// fresh parse.
func (d *Driver) SetOldTree(root subtree.ID, oldRanges []span.Range) {
	d.reuseCursor = reuse.NewCursor(d.pool, root, nil)
	d.oldRanges = oldRanges
}

// SetDotWriter installs a Graphviz dot-graph sink for the GSS, invoked
// after every advance round.
func (d *Driver) SetDotWriter(w DotWriter) { d.dotWriter = w }

// Run drives the parse to completion, returning the accepted tree.
func (d *Driver) Run() (subtree.ID, error) {
	for {
		if err := d.checkBudget(); err != nil {
			return subtree.Nil, err
		}
		done, result, err := d.step()
		if err != nil {
			return subtree.Nil, err
		}
		if done {
			return result, nil
		}
	}
}

// checkBudget polls the cancellation flag, deadline and progress
// callback every span.OpCountPerParserTimeoutCheck operations.
func (d *Driver) checkBudget() error {
	d.opCount++
	if d.opCount%uint64(span.OpCountPerParserTimeoutCheck) != 0 {
		return nil
	}
	if d.opts.Cancelled != nil && d.opts.Cancelled.Load() {
		return span.ErrCancelled
	}
	if d.hasDeadline && time.Now().After(d.deadline) {
		return span.ErrCancelled
	}
	if d.opts.Progress != nil {
		pos, _ := d.lex.Position()
		hasError := false
		for _, v := range d.versions {
			if v.IsInError {
				hasError = true
				break
			}
		}
		if d.opts.Progress(ProgressState{CurrentByteOffset: pos, HasError: hasError}) {
			return span.ErrCancelled
		}
	}
	return nil
}

// step runs one round of the advance loop over every live version,
// returning (done, tree, err). done is true once exactly one version
// remains and it has accepted, or every version has halted without
// accepting.
func (d *Driver) step() (bool, subtree.ID, error) {
	if len(d.versions) == 0 {
		return true, subtree.Nil, nil
	}
	active := d.versions[:0:0]
	for _, v := range d.versions {
		active = append(active, v)
	}
	anyAlive := false
	for _, v := range active {
		if v.Halted || v.Paused {
			// A paused version cannot make progress by itself; it
			// either gets resumed and forced to accept by
			// condense below, once nothing better is left, or it waits
			// for another version to out-perform it.
			if !v.Halted {
				anyAlive = true
			}
			continue
		}
		anyAlive = true
		if result, accepted := d.advance(v); accepted {
			if d.dotWriter != nil {
				d.dotWriter.WriteDot(d.versions, d.graph)
			}
			return true, result, nil
		}
	}
	if tree, forced := d.condense(); forced {
		if d.dotWriter != nil {
			d.dotWriter.WriteDot(d.versions, d.graph)
		}
		return true, tree, nil
	}
	if d.dotWriter != nil {
		d.dotWriter.WriteDot(d.versions, d.graph)
	}
	if !anyAlive {
		return true, subtree.Nil, span.ErrCancelled
	}
	return false, subtree.Nil, nil
}
