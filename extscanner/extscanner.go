/*
Package extscanner adapts a grammar's external-scanner hooks into the
driver's lexing path. The adapter is a thin façade: it owns the opaque
payload across a parser's lifetime and dispatches Scan either natively
(calling the ABI directly, the only mode exercised by this module's
tests) or through an injected WasmStore.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package extscanner

import (
	"github.com/npillmayer/grit/table"
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key "grit.extscanner".
func tracer() tracing.Trace {
	return tracing.Select("grit.extscanner")
}

// WasmStore is the façade a wasm-compiled external scanner is invoked
// through. grit ships no wasm runtime; a wasm-backed grammar supplies
// its own implementation.
type WasmStore interface {
	CallCreate(moduleID string) (payload uint32, err error)
	CallDestroy(moduleID string, payload uint32) error
	CallScan(moduleID string, payload uint32, validSymbols []bool) (ok bool, externalIndex int, err error)
	CallSerialize(moduleID string, payload uint32, buf []byte) (int, error)
	CallDeserialize(moduleID string, payload uint32, state []byte) error
}

// Adapter owns the opaque scanner payload across a parser's parses and
// presents one Scan/Serialize/Deserialize surface regardless of whether
// the grammar's scanner is native Go or wasm.
type Adapter struct {
	abi         table.ExternalScannerABI
	store       WasmStore
	moduleID    string
	payload     interface{}
	wasmPayload uint32
}

// NewNative creates an adapter that calls abi directly.
func NewNative(abi table.ExternalScannerABI) *Adapter {
	a := &Adapter{abi: abi}
	if abi != nil {
		a.payload = abi.Create()
	}
	return a
}

// NewWasm creates an adapter that routes through store for the named
// module, still presenting abi's symbol map for the SymbolCount/Symbol
// translation (a wasm module's own code implements Scan/Serialize, but
// the grammar's table.Language still declares how many external symbols
// exist and how they map onto table.Symbol).
func NewWasm(abi table.ExternalScannerABI, store WasmStore, moduleID string) (*Adapter, error) {
	a := &Adapter{abi: abi, store: store, moduleID: moduleID}
	payload, err := store.CallCreate(moduleID)
	if err != nil {
		return nil, err
	}
	a.wasmPayload = payload
	return a, nil
}

// Destroy releases the scanner payload.
func (a *Adapter) Destroy() {
	if a == nil || a.abi == nil {
		return
	}
	if a.store != nil {
		_ = a.store.CallDestroy(a.moduleID, a.wasmPayload)
		return
	}
	a.abi.Destroy(a.payload)
}

// SymbolCount reports how many distinct external tokens this grammar
// defines.
func (a *Adapter) SymbolCount() int {
	if a == nil || a.abi == nil {
		return 0
	}
	return a.abi.SymbolCount()
}

// Symbol maps an external token index to a table.Symbol.
func (a *Adapter) Symbol(externalIndex int) table.Symbol {
	return a.abi.Symbol(externalIndex)
}

// Scan runs the external scanner, restricted to validSymbols (indexed by
// external token number). Returns whether a token was recognized and its
// table.Symbol.
func (a *Adapter) Scan(lexer table.ExternalLexer, validSymbols []bool) (ok bool, symbol table.Symbol) {
	if a == nil || a.abi == nil {
		return false, 0
	}
	var externalIndex int
	if a.store != nil {
		var err error
		ok, externalIndex, err = a.store.CallScan(a.moduleID, a.wasmPayload, validSymbols)
		if err != nil {
			tracer().Errorf("wasm scan: %v", err)
			return false, 0
		}
	} else {
		ok, externalIndex = a.abi.Scan(a.payload, lexer, validSymbols)
	}
	if !ok {
		return false, 0
	}
	return true, a.abi.Symbol(externalIndex)
}

// Serialize snapshots the scanner's state into a fresh byte slice, the
// form stored on a gss.Version as "last external token".
func (a *Adapter) Serialize(buf []byte) []byte {
	if a == nil || a.abi == nil {
		return nil
	}
	var n int
	if a.store != nil {
		n, _ = a.store.CallSerialize(a.moduleID, a.wasmPayload, buf)
	} else {
		n = a.abi.Serialize(a.payload, buf)
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out
}

// Deserialize restores the scanner's state from a previously-serialized
// snapshot. The caller must not retain state past this call — Adapter
// copies nothing extra, it hands the slice straight to the ABI.
func (a *Adapter) Deserialize(state []byte) {
	if a == nil || a.abi == nil {
		return
	}
	if a.store != nil {
		_ = a.store.CallDeserialize(a.moduleID, a.wasmPayload, state)
		return
	}
	a.abi.Deserialize(a.payload, state)
}
