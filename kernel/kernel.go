// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package kernel provides the scheduler-facing primitives the message
// queue is built on: execution-context detection, critical sections
// usable from interrupt context, and a bounded ring with blocking,
// non-blocking and interrupt-safe entry points.
//
// Goroutines play the role of tasks. Interrupt context is modeled
// explicitly, as on a single-core system: interrupt handlers bracket
// their code with EnterISR/ExitISR, and IsISR reports whether the
// current execution context is such a handler.
package kernel

import (
	"runtime"
	"sync/atomic"
)

// interrupt nesting depth. Non-zero means interrupt context.
var isrNesting int32

// EnterISR marks the beginning of interrupt-handler code. Calls nest.
func EnterISR() {
	atomic.AddInt32(&isrNesting, 1)
}

// ExitISR marks the end of interrupt-handler code. Unbalanced calls
// are fatal.
func ExitISR() {
	if atomic.AddInt32(&isrNesting, -1) < 0 {
		atomic.AddInt32(&isrNesting, 1)
		panic("kernel: unbalanced ExitISR")
	}
}

// IsISR reports whether the caller runs in interrupt context.
func IsISR() bool {
	return atomic.LoadInt32(&isrNesting) > 0
}

// YieldFromISR requests a scheduler yield on the way out of an
// interrupt handler. It is a no-op when yield is false; handlers pass
// the flag returned by the FromISR queue entry points, so control goes
// to the task unblocked by the handler as soon as possible.
func YieldFromISR(yield bool) {
	if yield {
		runtime.Gosched()
	}
}
