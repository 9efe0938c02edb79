package adl

import (
	"fmt"
	"strings"
)

// ParseError reports a document that is not well-formed XML.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %s", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StructuralError reports a document that is missing a node or attribute
// the model cannot be built without. It aborts the whole run.
type StructuralError struct {
	Entity string // e.g. "regfile", "instrfield"
	Name   string
	Msg    string
}

func (e *StructuralError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Msg)
	}
	return fmt.Sprintf("%s %q: %s", e.Entity, e.Name, e.Msg)
}

func structuralf(entity, name, format string, args ...interface{}) *StructuralError {
	return &StructuralError{Entity: entity, Name: name, Msg: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a name that could not be resolved against an
// already-built table. It is recoverable at instruction granularity: the
// offending instruction is dropped and the run continues.
type ResolutionError struct {
	Instruction string
	Ref         string
	Msg         string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	if e.Instruction != "" {
		fmt.Fprintf(&b, "instruction %q: ", e.Instruction)
	}
	b.WriteString(e.Msg)
	if e.Ref != "" {
		fmt.Fprintf(&b, " (%s)", e.Ref)
	}
	return b.String()
}

type WarningKind string

const (
	// AmbiguityWarning marks two derivations that disagreed about a width;
	// the wider value was adopted.
	AmbiguityWarning WarningKind = "ambiguity"
	WidthMismatch    WarningKind = "width-mismatch"
	UnknownReloc     WarningKind = "unknown-reloc"
)

type Warning struct {
	Kind    WarningKind
	Subject string
	Msg     string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s: %s", w.Kind, w.Subject, w.Msg)
}

// Diagnostics collects the recoverable problems found during one run.
type Diagnostics struct {
	Errors   []*ResolutionError
	Warnings []Warning
}

func (d *Diagnostics) addError(err *ResolutionError) {
	d.Errors = append(d.Errors, err)
}

func (d *Diagnostics) warnf(kind WarningKind, subject, format string, args ...interface{}) {
	d.Warnings = append(d.Warnings, Warning{
		Kind:    kind,
		Subject: subject,
		Msg:     fmt.Sprintf(format, args...),
	})
}

// AggregateError is returned in strict mode when any instruction failed to
// resolve.
type AggregateError struct {
	Core   string
	Errors []*ResolutionError
}

func (e *AggregateError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "core %q: %d instruction(s) failed to resolve", e.Core, len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *AggregateError) Unwrap() []error {
	ret := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		ret[i] = err
	}
	return ret
}
