// Copyright 2016 Aleksandr Demakin. All rights reserved.

package kernel

import (
	"runtime"
	"sync/atomic"
)

// CriticalSection is a spin lock usable from both task and interrupt
// context. It protects short state manipulation only; nothing blocks
// or allocates while holding it.
type CriticalSection struct {
	value uint32
}

// Enter spins until the section is acquired.
func (cs *CriticalSection) Enter() {
	for !cs.TryEnter() {
		runtime.Gosched()
	}
}

// TryEnter makes a single acquisition attempt.
func (cs *CriticalSection) TryEnter() bool {
	return atomic.CompareAndSwapUint32(&cs.value, 0, 1)
}

// Exit releases the section.
func (cs *CriticalSection) Exit() {
	atomic.StoreUint32(&cs.value, 0)
}
