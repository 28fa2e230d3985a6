package grit

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/npillmayer/grit/debug"
	"github.com/npillmayer/grit/driver"
	"github.com/npillmayer/grit/extscanner"
	"github.com/npillmayer/grit/gss"
	"github.com/npillmayer/grit/lexer"
	"github.com/npillmayer/grit/lexmode"
	"github.com/npillmayer/grit/subtree"
	"github.com/npillmayer/grit/table"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace {
	return tracing.Select("grit")
}

// Parser orchestrates one language's repeated, possibly-incremental
// parses: it owns the subtree pool and the
// external-scanner payload across parses, and drives a fresh driver.Driver
// for each call to Parse.
type Parser struct {
	lang table.Language
	pool *subtree.Pool
	bank *lexmode.Bank
	ext  *extscanner.Adapter

	cancelled atomic.Bool
	timeout   time.Duration
	progress  driver.ProgressCallback
	dotWriter io.Writer

	lastTree   subtree.ID
	lastRanges []Range

	// resumeDriver is kept across a cancelled Parse call so the next call
	// can pick the same GSS/reuse-cursor state back up instead
	// of starting over. Resume only makes sense while the language and
	// input are unchanged.
	resumeDriver *driver.Driver
}

// NewParser creates a Parser for lang, using bank as the default
// internal lexer. ext may be nil for a grammar with no external scanner.
func NewParser(lang table.Language, bank *lexmode.Bank, ext *extscanner.Adapter) *Parser {
	return &Parser{lang: lang, pool: subtree.NewPool(), bank: bank, ext: ext}
}

// Pool returns the subtree pool this parser allocates trees from.
// Callers use it to walk a tree returned by Parse.
func (p *Parser) Pool() *subtree.Pool { return p.pool }

// SetTimeout bounds wall-clock time for subsequent Parse calls; zero
// disables the timeout.
func (p *Parser) SetTimeout(d time.Duration) { p.timeout = d }

// SetProgressCallback installs a callback polled on the same cadence as
// cancellation/timeout.
func (p *Parser) SetProgressCallback(cb driver.ProgressCallback) { p.progress = cb }

// SetDotGraphWriter installs a Graphviz dot-graph sink for the GSS,
// written after every advance round.
// Pass nil to disable.
func (p *Parser) SetDotGraphWriter(w io.Writer) { p.dotWriter = w }

// Cancel requests the in-progress (or next) Parse call stop cooperatively.
func (p *Parser) Cancel() { p.cancelled.Store(true) }

// Reset releases the external-scanner payload, the previous tree, and any
// driver kept from a cancelled parse: a
// caller who wants to reuse a *Parser for an unrelated input calls this
// rather than constructing a new one.
func (p *Parser) Reset() {
	p.ext.Destroy()
	if p.lastTree != subtree.Nil {
		p.pool.Release(p.lastTree)
	}
	p.lastTree = subtree.Nil
	p.lastRanges = nil
	p.resumeDriver = nil
	p.cancelled.Store(false)
}

// Edit applies e to the tree retained from the previous Parse call, so the
// next Parse reuses everything e didn't touch. It is a no-op if no previous tree exists
// yet. It does not itself re-lex or
// re-parse anything, it only adjusts the stored tree so the reuse cursor
// walks it correctly on the next call.
func (p *Parser) Edit(e Edit) {
	if p.lastTree == subtree.Nil {
		return
	}
	edited := p.pool.ApplyEdit(p.lastTree, e)
	p.pool.Release(p.lastTree)
	p.lastTree = edited
}

// Parse runs one (possibly incremental) parse over input, reusing the
// previous tree (if SetOldTree/a prior successful Parse recorded one)
// wherever the reuse gate allows it. If the
// previous call to Parse returned ErrCancelled, this call resumes the
// same driver state (GSS, reuse cursor) rather than
// starting the parse over — the caller must pass
// the same input and ranges for the resume to be meaningful.
func (p *Parser) Parse(input lexer.Input, ranges []Range) (subtree.ID, error) {
	p.cancelled.Store(false)

	d := p.resumeDriver
	if d == nil {
		opts := driver.Options{
			Timeout:        p.timeout,
			Cancelled:      &p.cancelled,
			Progress:       p.progress,
			IncludedRanges: toGritRanges(ranges),
		}
		d = driver.New(p.lang, p.pool, p.bank, p.ext, input, opts)
		if p.dotWriter != nil {
			d.SetDotWriter(dotSink{w: p.dotWriter})
		}
		if p.lastTree != subtree.Nil {
			d.SetOldTree(p.lastTree, toGritRanges(p.lastRanges))
		}
	}

	tree, err := d.Run()
	if err != nil {
		if err == ErrCancelled {
			p.resumeDriver = d
		}
		return subtree.Nil, err
	}
	p.resumeDriver = nil
	if p.lastTree != subtree.Nil {
		p.pool.Release(p.lastTree)
	}
	p.lastTree = p.pool.Retain(tree)
	p.lastRanges = ranges
	return tree, nil
}

// ParseString parses a complete in-memory UTF-8 buffer.
func (p *Parser) ParseString(source []byte) (subtree.ID, error) {
	return p.ParseStringWithEncoding(source, UTF8)
}

// ParseStringWithEncoding parses a complete in-memory buffer in the given
// encoding. grit's default internal lexer only decodes UTF-8; UTF-16
// inputs are rejected up front rather than silently mis-lexed — wiring a
// transcoding lexer.Input is future work the lexer package's design
// leaves room for.
func (p *Parser) ParseStringWithEncoding(source []byte, enc Encoding) (subtree.ID, error) {
	if enc != UTF8 {
		return subtree.Nil, fmt.Errorf("%w: encoding %d", ErrUnsupportedLanguage, enc)
	}
	input := func(byteOffset uint32, _ Point) ([]byte, bool) {
		if int(byteOffset) >= len(source) {
			return nil, true
		}
		return source[byteOffset:], false
	}
	return p.Parse(input, nil)
}

func toGritRanges(ranges []Range) []Range {
	if ranges == nil {
		return nil
	}
	out := make([]Range, len(ranges))
	copy(out, ranges)
	return out
}

// dotSink adapts an io.Writer into a driver.DotWriter by delegating the
// actual rendering to package debug, which knows how to walk a
// *gss.Graph without this package needing to import pterm itself.
type dotSink struct{ w io.Writer }

func (s dotSink) WriteDot(versions []*gss.Version, graph *gss.Graph) {
	debug.WriteDot(s.w, versions, graph)
}
