package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which stage of the codec produced the error
type Phase string

const (
	PhaseRead      Phase = "read"      // file access and header
	PhaseMetadata  Phase = "metadata"  // label/animation/morph tables, chunk stream
	PhaseHierarchy Phase = "hierarchy" // node array walk
	PhaseAttach    Phase = "attach"    // geometry decode/encode
	PhaseSkin      Phase = "skin"      // weighted attach merge
	PhaseWrite     Phase = "write"     // output buffer
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidPath        Kind = "invalid_path"
	KindUnrecognizedFormat Kind = "unrecognized_format"
	KindTruncatedMetadata  Kind = "truncated_metadata"
	KindOutOfRange         Kind = "out_of_range"
	KindCorruptAttach      Kind = "corrupt_attach"
	KindUnterminatedList   Kind = "cyclic_or_unterminated_list"
)

// Sentinels for errors.Is. They match any phase.
var (
	InvalidPath        = &Error{Kind: KindInvalidPath}
	UnrecognizedFormat = &Error{Kind: KindUnrecognizedFormat}
	TruncatedMetadata  = &Error{Kind: KindTruncatedMetadata}
	OutOfRange         = &Error{Kind: KindOutOfRange}
	CorruptAttach      = &Error{Kind: KindCorruptAttach}
	UnterminatedList   = &Error{Kind: KindUnterminatedList}
)

// Error is the structured error returned by every codec package.
type Error struct {
	Cause   error
	Phase   Phase
	Kind    Kind
	Detail  string
	Addr    uint32
	HasAddr bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	if e.Phase != "" {
		b.WriteByte('[')
		b.WriteString(string(e.Phase))
		b.WriteString("] ")
	}
	b.WriteString(string(e.Kind))

	if e.HasAddr {
		fmt.Fprintf(&b, " at 0x%08x", e.Addr)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a phase
// matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// At records the file address the error refers to
func (b *Builder) At(addr uint32) *Builder {
	b.err.Addr = addr
	b.err.HasAddr = true
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Rephase converts an error of kind from into kind to, keeping address and
// detail. Used where a generic failure has a more specific meaning for the
// caller, e.g. an out-of-range read inside a sentinel-terminated array.
func Rephase(err error, phase Phase, from, to Kind) error {
	e, ok := err.(*Error)
	if !ok || e.Kind != from {
		return err
	}
	return &Error{
		Phase:   phase,
		Kind:    to,
		Addr:    e.Addr,
		HasAddr: e.HasAddr,
		Detail:  e.Detail,
		Cause:   e,
	}
}
