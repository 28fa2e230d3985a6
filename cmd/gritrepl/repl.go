package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/pterm/pterm"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"

	"github.com/npillmayer/grit"
	"github.com/npillmayer/grit/debug"
	"github.com/npillmayer/grit/lexmode"
	"github.com/npillmayer/grit/table"
)

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/

// We provide a trivial token-sequence grammar as the default playground:
// the input is any run of words and numbers, separated by blanks, and the
// whole run reduces to one root. Unknown characters exercise the error
// recovery, repeated lines exercise incremental reuse.
//
//	S    ➞ token*
//	token ➞ word  |  number
//	word  ➞ [a-zA-Z]+
//	number ➞ [0-9]+
func makeTokenGrammar() (table.Language, *lexmode.Bank) {
	const (
		symWord table.Symbol = 1
		symNum  table.Symbol = 2
		symWS   table.Symbol = 3
	)
	b := table.NewBuilder("tokens")
	b.Name(symWord, "word").Name(symNum, "number").Name(symWS, "ws")
	b.LexMode(0, table.LexMode{LexState: 0})
	b.Shift(0, symWord, 0, false)
	b.Shift(0, symNum, 0, false)
	b.Reusable(0, symWord)
	b.Reusable(0, symNum)
	b.Extra(symWS)
	b.Accept(0, table.EOF)
	lang := b.Build()

	bank := lexmode.NewBank()
	err := bank.AddState(0, []lexmode.Rule{
		{Pattern: `[a-zA-Z]+`, Symbol: uint16(symWord)},
		{Pattern: `[0-9]+`, Symbol: uint16(symNum)},
		{Pattern: `[ \t]+`, Symbol: uint16(symWS)},
	})
	if err != nil {
		panic(fmt.Errorf("error creating token grammar: %s", err.Error()))
	}
	return lang, bank
}

// main starts an interactive CLI, where users may enter lines of text.
// Every line is parsed with the previous line's tree as the reuse
// source, and the resulting tree is printed. Unrecognized characters
// show up as error nodes rather than aborting.
func main() {
	// set up logging
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	dotfile := flag.String("dot", "", "Write a Graphviz dot rendering of the parse stack to this file")
	flag.Parse()
	tracer().SetTraceLevel(traceLevel(*tlevel))
	pterm.Info.Println("Welcome to the grit REPL") // colored welcome message
	tracer().Infof("Trace level is %s", *tlevel)
	//
	// set up grammar and parser
	lang, bank := makeTokenGrammar()
	p := grit.NewParser(lang, bank, nil)
	if *dotfile != "" {
		f, err := os.Create(*dotfile)
		if err != nil {
			tracer().Errorf(err.Error())
			os.Exit(3)
		}
		defer f.Close()
		p.SetDotGraphWriter(f)
	}
	//
	// set up REPL
	repl, err := readline.New("grit> ")
	if err != nil {
		tracer().Errorf(err.Error())
		os.Exit(3)
	}
	intp := &Intp{
		lang: lang,
		p:    p,
		repl: repl,
	}
	input := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if input != "" {
		if err := intp.parseLine(input); err != nil {
			tracer().Errorf("%v", err)
			os.Exit(2)
		}
	}
	tracer().Infof("Quit with <ctrl>D")
	intp.REPL() // go into interactive mode
}

// We use pterm for moderately fancy output.
func initDisplay() {
	pterm.EnableDebugMessages()
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

// Intp is our interpreter object
type Intp struct {
	lastInput string
	lang      table.Language
	p         *grit.Parser
	repl      *readline.Instance
}

// REPL starts interactive mode.
func (intp *Intp) REPL() {
	for {
		line, err := intp.repl.Readline()
		if err != nil { // io.EOF
			break
		}
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		if err := intp.parseLine(line); err != nil {
			pterm.Error.Println(err.Error())
			continue
		}
	}
	println("Good bye!")
}

// parseLine parses one line of input. If a previous line was parsed, the
// two lines are diffed first and the difference is handed to the parser
// as an edit, so unchanged token runs are reused from the previous tree.
func (intp *Intp) parseLine(line string) error {
	if intp.lastInput != "" {
		intp.p.Edit(synthesizeEdit(intp.lastInput, line))
	}
	tree, err := intp.p.ParseString([]byte(line))
	if err != nil {
		return err
	}
	intp.lastInput = line
	debug.Tree(intp.p.Pool(), intp.lang, tree, "")
	return nil
}

// synthesizeEdit diffs two single-line inputs into the edit description
// the parser expects: the shared prefix and suffix are untouched, the
// bytes between them were replaced.
func synthesizeEdit(old, cur string) grit.Edit {
	prefix := 0
	for prefix < len(old) && prefix < len(cur) && old[prefix] == cur[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(cur)-prefix &&
		old[len(old)-1-suffix] == cur[len(cur)-1-suffix] {
		suffix++
	}
	oldEnd := uint32(len(old) - suffix)
	newEnd := uint32(len(cur) - suffix)
	return grit.Edit{
		StartByte:   uint32(prefix),
		OldEndByte:  oldEnd,
		NewEndByte:  newEnd,
		StartPoint:  grit.Point{Row: 0, Column: uint32(prefix)},
		OldEndPoint: grit.Point{Row: 0, Column: oldEnd},
		NewEndPoint: grit.Point{Row: 0, Column: newEnd},
	}
}

func traceLevel(l string) tracing.TraceLevel {
	return tracing.TraceLevelFromString(l)
}
