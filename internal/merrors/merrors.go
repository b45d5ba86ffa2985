// Package merrors defines the typed error kinds the merge engine raises
// and the recoverable/fatal policy toggles described in spec section 7.
package merrors

import "fmt"

// Kind identifies one of the error categories from the error handling design.
type Kind int

const (
	// IOOpen is raised when a plugin, BSA, or config file cannot be opened.
	IOOpen Kind = iota
	// IORead is raised on a read failure against an already-open file.
	IORead
	// IOWrite is raised when an output file cannot be written.
	IOWrite
	// CodecStructural is raised on unrecoverable binary corruption.
	CodecStructural
	// CodecUnsupportedKind is raised when a record kind outside the TES3 allow-list is seen.
	CodecUnsupportedKind
	// ConfigMissing is raised when a referenced game config file does not exist.
	ConfigMissing
	// ConfigMalformed is raised when a game config file cannot be parsed.
	ConfigMalformed
	// MergeListParse is raised on a malformed -m/--merge spec string.
	MergeListParse
	// MeshMissing is raised when a referenced mesh cannot be found by the asset probe.
	MeshMissing
	// ReferenceMissingMaster is raised when a kept reference names a master not in the output header.
	ReferenceMissingMaster
	// PluginSkipped is raised when an entire plugin is dropped from a merge list.
	PluginSkipped
	// OutputUnchanged is not an error: it is the output stabilizer's "nothing to write" decision.
	OutputUnchanged
)

// String renders the kind for log lines and error messages.
func (k Kind) String() string {
	switch k {
	case IOOpen:
		return "io-open"
	case IORead:
		return "io-read"
	case IOWrite:
		return "io-write"
	case CodecStructural:
		return "codec-structural"
	case CodecUnsupportedKind:
		return "codec-unsupported-kind"
	case ConfigMissing:
		return "config-missing"
	case ConfigMalformed:
		return "config-malformed"
	case MergeListParse:
		return "merge-list-parse"
	case MeshMissing:
		return "mesh-missing"
	case ReferenceMissingMaster:
		return "reference-missing-master"
	case PluginSkipped:
		return "plugin-skipped"
	case OutputUnchanged:
		return "output-unchanged"
	default:
		return "unknown"
	}
}

// alwaysFatal holds the kinds that are fatal regardless of flags (spec section 7:
// "all kinds except IO-write and codec-structural are recoverable by default").
//
// Note the inversion: IO-write and codec-structural are the two kinds that are
// ALWAYS fatal; everything else starts recoverable and is promoted by flags.
var alwaysFatal = map[Kind]bool{
	IOWrite:         true,
	CodecStructural: true,
}

// Error is a typed merge-engine error carrying its kind and whether the
// caller has upgraded recoverable kinds to fatal.
type Error struct {
	Err      error
	Kind     Kind
	Upgraded bool // true when the caller promoted this occurrence (e.g. under --no-ignore-errors)
}

// New builds an Error of the given kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf builds an Error of the given kind from a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Unwrap exposes the wrapped error for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Fatal reports whether this occurrence must abort the containing task.
// Kinds in alwaysFatal are always fatal; everything else is fatal only
// when the caller explicitly upgraded it (--no-ignore-errors or
// --ignore-important-errors, per the flag each kind responds to).
func (e *Error) Fatal() bool {
	if alwaysFatal[e.Kind] {
		return true
	}
	return e.Upgraded
}

// WithUpgrade returns a copy of e with Upgraded set, used by callers that
// apply --no-ignore-errors/--ignore-important-errors to a freshly built error.
func (e *Error) WithUpgrade(upgrade bool) *Error {
	cp := *e
	cp.Upgraded = upgrade
	return &cp
}
