// Package vmerrors defines the fatal error taxonomy shared across the
// decoder, resolver, method area, and interpreter. Each kind maps to an
// explicit process exit code at the CLI boundary.
package vmerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the fatal error taxonomy. Java-exception-group errors
// (ArithmeticException, NullPointerException, ...) are NOT represented here;
// those flow as heap-allocated objects wrapped in pkg/vm's thrown value,
// never as a Kind.
type Kind string

const (
	Format            Kind = "FormatError"
	Descriptor        Kind = "DescriptorError"
	Resolution        Kind = "ResolutionError"
	ClassNotFound     Kind = "ClassNotFound"
	NoSuchMethod      Kind = "NoSuchMethod"
	NoSuchField       Kind = "NoSuchField"
	NativeMissing     Kind = "NativeMissing"
	UnsupportedOpcode Kind = "UnsupportedOpcode"
)

// VMError is the concrete error value wrapped (with a stack trace) by New.
type VMError struct {
	Kind    Kind
	Message string
}

func (e *VMError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs a Kind-tagged error with a captured stack trace.
func New(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&VMError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Wrap attaches kind and stack-trace context to an existing error, e.g. when
// a lower layer (io, os) fails and the failure needs taxonomy classification.
func Wrap(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(&VMError{Kind: kind, Message: fmt.Sprintf(format, args...)}, err.Error())
}

// KindOf unwraps err looking for the VMError at its root, returning its
// Kind. Used at the CLI boundary to pick a process exit code.
func KindOf(err error) (Kind, bool) {
	cause := errors.Cause(err)
	if ve, ok := cause.(*VMError); ok {
		return ve.Kind, true
	}
	return "", false
}
