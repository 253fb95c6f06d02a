package htmlizer

import (
	"fmt"
	"strings"
)

// Kind classifies a fatal compile failure.
type Kind int

const (
	// KindMarkup means the template markup could not be parsed.
	KindMarkup Kind = iota
	// KindParse means a binding literal was malformed.
	KindParse
	// KindMissingEndTag means a comment block was never closed.
	KindMissingEndTag
	// KindConflictingBindings means one element carries two bindings that
	// both control its descendants.
	KindConflictingBindings
)

func (k Kind) String() string {
	switch k {
	case KindMarkup:
		return "markup"
	case KindParse:
		return "parse"
	case KindMissingEndTag:
		return "missing end tag"
	case KindConflictingBindings:
		return "conflicting bindings"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// CompileError is returned by Compile and CompileNode. Compile errors are
// fatal: no Template is produced and no DOM is touched.
type CompileError struct {
	Kind    Kind
	Keyword string   // block keyword for KindMissingEndTag
	Keys    []string // offending binding keys for KindConflictingBindings
	Binding string   // raw binding text, when known
	Err     error
}

func (e *CompileError) Error() string {
	switch e.Kind {
	case KindMissingEndTag:
		return fmt.Sprintf("htmlizer: missing end tag for %q block", e.Keyword)
	case KindConflictingBindings:
		return fmt.Sprintf("htmlizer: conflicting bindings %s in %q", strings.Join(quoteAll(e.Keys), " and "), e.Binding)
	case KindParse:
		return fmt.Sprintf("htmlizer: invalid binding %q: %v", e.Binding, e.Err)
	}
	return fmt.Sprintf("htmlizer: %s: %v", e.Kind, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ReferenceError reports a named reference path that does not resolve.
type ReferenceError struct {
	Path    string
	Segment string
}

func (e *ReferenceError) Error() string {
	if e.Segment == e.Path {
		return fmt.Sprintf("htmlizer: unresolved reference %q", e.Path)
	}
	return fmt.Sprintf("htmlizer: unresolved reference %q (no %q)", e.Path, e.Segment)
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}
	return out
}
