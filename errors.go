package rgraph

import (
	"fmt"
	"log"
	"os"
)

// Logger receives one diagnostic line per builder-time validation failure
// (spec §7: "errors during a frame produce a diagnostic line"). Replace it
// to route diagnostics elsewhere; it defaults to stderr.
var Logger = log.New(os.Stderr, "rgraph: ", log.Ldate|log.Ltime)

// ErrKind classifies a builder or scheduler failure. See spec §7.
type ErrKind int

const (
	// ErrDuplicateName: an image or pass name already exists in the
	// owning scope.
	ErrDuplicateName ErrKind = iota
	// ErrUnknownName: a referenced image or component was never declared.
	ErrUnknownName
	// ErrClearValueMismatch: load-op/clear-value combination is
	// inconsistent.
	ErrClearValueMismatch
	// ErrDoubleUse: a pass uses the same image twice, or declares a
	// second depth-stencil attachment.
	ErrDoubleUse
	// ErrOutOfScope: GraphicsPass.GetImage called outside its callback.
	ErrOutOfScope
	// ErrCycle: the pass dependency graph is not a DAG. Should not occur
	// via the public API; treated as an internal invariant violation.
	ErrCycle
	// ErrInvalidDevice: the Device supplied to CreateGraph is unusable.
	ErrInvalidDevice
)

func (k ErrKind) String() string {
	switch k {
	case ErrDuplicateName:
		return "DuplicateName"
	case ErrUnknownName:
		return "UnknownName"
	case ErrClearValueMismatch:
		return "ClearValueMismatch"
	case ErrDoubleUse:
		return "DoubleUse"
	case ErrOutOfScope:
		return "OutOfScope"
	case ErrCycle:
		return "Cycle"
	case ErrInvalidDevice:
		return "InvalidDevice"
	default:
		return "Unknown"
	}
}

// Error is returned by every fallible builder call. Kind lets callers
// switch on the failure category from spec §7.
type Error struct {
	Kind    ErrKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("rgraph: %s: %s", e.Kind, e.Message)
}

func newError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// reportAndSkip logs a builder-time validation failure. Per spec §7 the
// offending call becomes a no-op and the frame continues to be built; it
// is the caller's job to return immediately afterwards without aborting
// the graph.
func reportAndSkip(err *Error) *Error {
	Logger.Println(err.Error())
	return err
}
