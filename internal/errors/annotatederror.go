// Package errors provides error wrapping with slog annotations and source
// locations. It re-exports the stdlib helpers so call sites only need one
// errors import.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
)

// annotatedError carries a message, an optional cause, structured annotations
// and the source location where it was created.
type annotatedError struct {
	msg         string
	cause       error
	annotations []slog.Attr
	source      string
}

// New creates an error with the given message and captures the caller.
func New(msg string) error {
	return &annotatedError{msg: msg, cause: nil, annotations: nil, source: callerSource()}
}

// NewSentinel creates an error intended for use as a package-level sentinel
// that callers match with Is.
func NewSentinel(msg string) error {
	return &annotatedError{msg: msg, cause: nil, annotations: nil, source: callerSource()}
}

// Wrap annotates err with a contextual message and optional slog attributes.
// The resulting error message reads "msg: err".
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{msg: msg, cause: err, annotations: attrs, source: callerSource()}
}

// DecoratePanic converts a recovered panic value into an error pointing at
// the panicking frame.
//
//	defer func() {
//	    if err := errors.DecoratePanic(recover()); err != nil { ... }
//	}()
func DecoratePanic(recovered any) error {
	if recovered == nil {
		return nil
	}
	return &annotatedError{
		msg:         fmt.Sprintf("panic: %v", recovered),
		cause:       nil,
		annotations: nil,
		source:      callerSource(),
	}
}

func (e *annotatedError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// callerSource resolves the first frame outside this file and the runtime to
// a "file.go:123" string.
func callerSource() string {
	pcs := make([]uintptr, 32) //nolint:mnd // enough frames for any wrap site.
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasSuffix(frame.File, "annotatederror.go") &&
			!strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
		}
		if !more {
			return ""
		}
	}
}

// SlogError renders err as a structured slog attribute with the error
// message, the source location of the innermost wrap site, and any
// annotations attached along the chain.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	var (
		annotations []any
		source      string
	)
	collect(err, &annotations, &source)
	attrs := []any{slog.String("message", err.Error())}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	return slog.Group("error", attrs...)
}

// collect walks the error chain gathering annotations. The first annotated
// error found provides the source location.
func collect(err error, annotations *[]any, source *string) {
	if err == nil {
		return
	}
	if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // chain walked manually.
		if *source == "" && ae.source != "" {
			*source = ae.source
		}
		for _, attr := range ae.annotations {
			*annotations = append(*annotations, attr)
		}
		collect(ae.cause, annotations, source)
		return
	}
	switch unwrappable := err.(type) { //nolint:errorlint // chain walked manually.
	case interface{ Unwrap() error }:
		collect(unwrappable.Unwrap(), annotations, source)
	case interface{ Unwrap() []error }:
		for _, joined := range unwrappable.Unwrap() {
			collect(joined, annotations, source)
		}
	}
}

// Is reports whether any error in err's chain matches target. See [errors.Is].
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target. See [errors.As].
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err. See [errors.Unwrap].
func Unwrap(err error) error {
	return errors.Unwrap(err)
}

// Join wraps the given errors into a single error. See [errors.Join].
func Join(errs ...error) error {
	return errors.Join(errs...)
}
