package driver

import (
	"sync/atomic"
	"time"

	"github.com/npillmayer/grit/span"
)

// ProgressState is passed to a ProgressCallback once every
// span.OpCountPerParserTimeoutCheck advance rounds.
type ProgressState struct {
	CurrentByteOffset uint32
	HasError          bool
}

// ProgressCallback is polled alongside the timeout/cancellation checks;
// returning true requests the parse stop early, same as a timeout.
type ProgressCallback func(ProgressState) bool

// Options configures a Driver.
type Options struct {
	// Timeout bounds wall-clock parse time; zero means no timeout.
	Timeout time.Duration
	// Cancelled, if non-nil, is polled every span.OpCountPerParserTimeoutCheck
	// operations; setting it true stops the parse early. Timeout and
	// cancellation flag coexist; either may fire first.
	Cancelled *atomic.Bool
	// Progress, if non-nil, is polled on the same cadence.
	Progress ProgressCallback
	// IncludedRanges restricts lexing to the given disjoint byte ranges,
	// for embedded-language parsing.
	IncludedRanges []span.Range
}

// ErrorStatus is a read-only snapshot of a version's error bookkeeping,
// consumed by compareErrorStatus and betterVersionExists.
type ErrorStatus struct {
	Cost                uint32
	NodeCountSinceError uint32
	DynamicPrecedence   int32
	IsInError           bool
}
