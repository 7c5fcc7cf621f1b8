// Package errors is a drop-in replacement for the standard library errors package that lets callers attach
// structured [slog.Attr] annotations and the source location to an error while it travels up the call stack.
//
// Log the result with [SlogError] to get the annotations of the whole chain flattened into the log line.
package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

type annotatedError struct {
	msg         string
	cause       error
	annotations []slog.Attr
	source      string
}

func (e *annotatedError) Error() string {
	switch {
	case e.cause == nil:
		return e.msg
	case e.msg == "":
		return e.cause.Error()
	default:
		return e.msg + ": " + e.cause.Error()
	}
}

func (e *annotatedError) Unwrap() error {
	return e.cause
}

// NewSentinel creates an error meant to be declared as a package level variable and compared with [Is].
//
// Sentinels carry no source location since it would point to the package initialisation.
func NewSentinel(msg string) error {
	return stderrors.New(msg) //nolint:err113 // this is the sentinel constructor.
}

// New creates an error annotated with the caller location and the given attributes.
func New(msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       nil,
		annotations: attrs,
		source:      callerSource(),
	}
}

// Wrap annotates err with a message, the caller location and the given attributes.
//
// Wrap(nil, ...) returns an error with only the message so that a forgotten nil check never loses context.
func Wrap(err error, msg string, attrs ...slog.Attr) error {
	return &annotatedError{
		msg:         msg,
		cause:       err,
		annotations: attrs,
		source:      callerSource(),
	}
}

// DecoratePanic converts a value recovered from a panic to an error pointing at the panicking line.
func DecoratePanic(excp any) error {
	if excp == nil {
		return nil
	}
	msg := fmt.Sprintf("panic: %v", excp)
	if err, ok := excp.(error); ok {
		msg = "panic: " + err.Error()
	}
	return &annotatedError{
		msg:         msg,
		cause:       nil,
		annotations: nil,
		source:      panicSource(),
	}
}

// SlogError returns an "error" group with the message, the flattened annotations of the error chain and the source
// location of the innermost annotated error.
func SlogError(err error) slog.Attr {
	if err == nil {
		return slog.Attr{Key: "error", Value: slog.AnyValue(nil)}
	}
	var (
		annotations []any
		source      string
	)
	walk(err, func(ae *annotatedError) {
		for _, a := range ae.annotations {
			annotations = append(annotations, a)
		}
		if ae.source != "" {
			source = ae.source
		}
	})
	attrs := []any{slog.String("message", err.Error())}
	if len(annotations) > 0 {
		attrs = append(attrs, slog.Group("annotations", annotations...))
	}
	if source != "" {
		attrs = append(attrs, slog.String("source", source))
	}
	return slog.Group("error", attrs...)
}

// walk visits every annotated error in the tree from the outermost to the innermost.
func walk(err error, visit func(*annotatedError)) {
	for err != nil {
		if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the chain manually.
			visit(ae)
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // same as above.
			for _, e := range joined.Unwrap() {
				walk(e, visit)
			}
			return
		}
		err = stderrors.Unwrap(err)
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

const thisFile = "annotatederror.go"

func callerSource() string {
	var pcs [16]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and callerSource.
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.HasSuffix(frame.File, thisFile) {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if !more {
			return ""
		}
	}
}

// panicSource finds the frame that called panic. While a deferred function runs, the stack contains the deferred
// function itself followed by runtime.gopanic and then the panicking frame.
func panicSource() string {
	var pcs [32]uintptr
	n := runtime.Callers(2, pcs[:]) //nolint:mnd // skip runtime.Callers and panicSource.
	frames := runtime.CallersFrames(pcs[:n])
	afterPanic := false
	for {
		frame, more := frames.Next()
		if afterPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return fmt.Sprintf("%s:%d", frame.File, frame.Line)
		}
		if frame.Function == "runtime.gopanic" {
			afterPanic = true
		}
		if !more {
			break
		}
	}
	return callerSource()
}
