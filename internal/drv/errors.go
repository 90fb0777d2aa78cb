package drv

import (
	"errors"
	"fmt"
)

var (
	ErrContractViolation = errors.New("contract violation")
	ErrUnsupported       = errors.New("not supported")
)

// Aborts construction because a caller broke a documented contract.
//
// Contract violations are programming errors in a recipe or a pipeline
// driver. They are raised synchronously at the offending call.
func Violation(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrContractViolation, fmt.Sprintf(format, args...)))
}

// Aborts construction because a capability is not implemented.
func Unsupported(format string, args ...any) {
	panic(fmt.Errorf("%w: %s", ErrUnsupported, fmt.Sprintf(format, args...)))
}

// Converts a panic raised by [Violation] or [Unsupported] into an error.
//
// Must be deferred directly. Any other panic is propagated unchanged.
//
//	func run() (err error) {
//	    defer drv.Recover(&err)
//	    ...
//	}
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok {
		if errors.Is(err, ErrContractViolation) || errors.Is(err, ErrUnsupported) {
			*errp = err
			return
		}
	}
	panic(r)
}
