package report

import (
	"fmt"
	"os"
)

// ErrorKind classifies a translation error.
type ErrorKind int

const (
	// KindValidation indicates malformed or inconsistent input: undefined
	// ids, operand type mismatches, missing required declarations.
	KindValidation ErrorKind = iota

	// KindUnsupported indicates a well-formed construct the translator does
	// not handle.
	KindUnsupported

	// KindAddressingModel indicates an addressing model the target cannot
	// express.  It is checked before any other translation work.
	KindAddressingModel

	// KindInternal indicates a broken translator invariant.  These errors are
	// never supposed to happen.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "invalid module"
	case KindUnsupported:
		return "unsupported"
	case KindAddressingModel:
		return "invalid addressing model"
	default:
		return "internal translator error"
	}
}

// TranslateError is an error produced during translation.  Translation code
// raises these by panicking; the top-level entry point recovers them with
// Catch and returns them as plain errors.
type TranslateError struct {
	// The error's classification.
	Kind ErrorKind

	// The error message.
	Message string
}

func (te *TranslateError) Error() string {
	return fmt.Sprintf("%s: %s", te.Kind, te.Message)
}

// Raise panics with a new translation error of the given kind.  Translation
// is not recoverable mid-module: the nearest Catch handler unwinds the whole
// attempt.
func Raise(kind ErrorKind, msg string, args ...interface{}) {
	panic(&TranslateError{Kind: kind, Message: fmt.Sprintf(msg, args...)})
}

// RaiseICE panics with an internal translator error.  It is used when a
// translator invariant breaks: eg. a placeholder that resolves twice.
func RaiseICE(msg string, args ...interface{}) {
	Raise(KindInternal, msg, args...)
}

// Catch recovers a translation error raised by a panic and stores it in err.
// Panics that are not translation errors or standard errors are re-raised:
// those are bugs, not diagnostics.
// NB: This function must ALWAYS be deferred.
func Catch(err *error) {
	if x := recover(); x != nil {
		switch e := x.(type) {
		case *TranslateError:
			*err = e
		case error:
			*err = e
		default:
			panic(x)
		}
	}
}

// -----------------------------------------------------------------------------

// ReportICE reports an internal translator error and exits.  These errors are
// always displayed regardless of log level.
func ReportICE(message string, args ...interface{}) {
	rep.m.Lock()
	defer rep.m.Unlock()

	displayICE(fmt.Sprintf(message, args...))

	os.Exit(-1)
}

// ReportFatal reports a fatal error and exits.  These are expected errors
// that generally result from invalid input or configuration: an unreadable
// input file, a malformed binary, an unsupported construct.
func ReportFatal(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayFatal(fmt.Sprintf(message, args...))
	}

	os.Exit(1)
}

// ReportError reports a non-fatal error.
func ReportError(message string, args ...interface{}) {
	if rep.logLevel > LogLevelSilent {
		rep.m.Lock()
		defer rep.m.Unlock()

		rep.isErr = true

		displayError(fmt.Sprintf(message, args...))
	}
}

// ReportWarning reports a warning.
func ReportWarning(message string, args ...interface{}) {
	if rep.logLevel > LogLevelWarn {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayWarning(fmt.Sprintf(message, args...))
	}
}

// ReportInfo reports an informational message.  Only displayed at the verbose
// log level.
func ReportInfo(message string, args ...interface{}) {
	if rep.logLevel >= LogLevelVerbose {
		rep.m.Lock()
		defer rep.m.Unlock()

		displayInfo(fmt.Sprintf(message, args...))
	}
}
