// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rtq

import "github.com/pkg/errors"

// Status vocabulary of all fallible queue operations. A nil error means
// the operation completed as requested. Callers branching on a wrapped
// result should compare with errors.Cause.
var (
	// ErrParameter is returned when an argument is invalid for the
	// calling context: a nil or wrong-sized message, or a wait
	// requested from interrupt context, where waiting is forbidden.
	ErrParameter = errors.New("rtq: invalid parameter")

	// ErrTimeout is returned when a bounded wait expired before the
	// operation could complete.
	ErrTimeout = errors.New("rtq: timeout elapsed")

	// ErrResource is returned when an immediate, non-waiting attempt
	// could not complete because the queue was full or empty.
	ErrResource = errors.New("rtq: resource not available")

	// ErrISR is returned when an operation that is only valid from
	// task context was attempted from interrupt context.
	ErrISR = errors.New("rtq: not allowed from interrupt context")
)
