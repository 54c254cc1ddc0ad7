package mvcc

import (
	"errors"
	"fmt"
)

// Kind classifies the failures a Timely Resource operation can surface.
type Kind int

const (
	// Rollback: losing race to append, a ww-conflict with a concurrent
	// committed or still-active version, or a blocking ww-wait that
	// returned a non-zero, non-Aborted outcome.
	Rollback Kind = iota
	// Interrupted: a blocking wait on a ww-dependency was cancelled.
	Interrupted
	// Timeout: a deadline was exceeded. No operation in this package
	// returns it: a ww-dependency wait in AddVersion/Delete that exceeds
	// its deadline is reported as Rollback.
	Timeout
	// InvalidArgument: AddVersion called with a nil payload, or
	// SetPrimordial called on a chain with two or more entries.
	InvalidArgument
	// CorruptedState: an invariant violation was detected during pruning.
	CorruptedState
	// PruneCallbackFailed: a PrunableVersion.Prune callback returned an
	// error during the sweep's cleanup phase. Distinct from CorruptedState:
	// the chain itself was sound, a payload's own cleanup failed.
	PruneCallbackFailed
)

func (k Kind) String() string {
	switch k {
	case Rollback:
		return "rollback"
	case Interrupted:
		return "interrupted"
	case Timeout:
		return "timeout"
	case InvalidArgument:
		return "invalid_argument"
	case CorruptedState:
		return "corrupted_state"
	case PruneCallbackFailed:
		return "prune_callback_failed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Fault is the error type returned by every Timely Resource operation that
// fails. It carries a Kind for callers that branch on failure category (a
// transaction driver deciding whether to retry, rollback, or quarantine the
// resource) plus an optional wrapped cause.
type Fault struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (f *Fault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Msg, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Msg)
}

// Unwrap exposes the wrapped cause to errors.Is/errors.As.
func (f *Fault) Unwrap() error { return f.Cause }

func fault(kind Kind, msg string) *Fault {
	return &Fault{Kind: kind, Msg: msg}
}

func faultf(kind Kind, cause error, format string, args ...any) *Fault {
	return &Fault{Kind: kind, Msg: fmt.Sprintf(format, args...), Cause: cause}
}

// IsKind reports whether err is a *Fault of the given Kind.
func IsKind(err error, kind Kind) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	return f.Kind == kind
}
