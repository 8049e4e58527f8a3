// Copyright 2016 Aleksandr Demakin. All rights reserved.

package kernel

import (
	"sync/atomic"
	"time"
)

// waiter states. A waiter is claimed exactly once, either by a wake
// or by its own timeout.
const (
	waiterWaiting uint32 = iota
	waiterSignaled
	waiterCancelled
)

// waiter is a single blocked task.
type waiter struct {
	state uint32
	wake  chan struct{}
}

func newWaiter() *waiter {
	return &waiter{wake: make(chan struct{}, 1)}
}

// signal claims the waiter for a wake. It reports false if the waiter
// had already cancelled itself. The wake channel has one slot and a
// waiter is signaled at most once, so the send never blocks.
func (w *waiter) signal() bool {
	if !atomic.CompareAndSwapUint32(&w.state, waiterWaiting, waiterSignaled) {
		return false
	}
	w.wake <- struct{}{}
	return true
}

// cancel claims the waiter for a timeout. It reports false if a wake
// won the race; the caller must then consume the pending signal.
func (w *waiter) cancel() bool {
	return atomic.CompareAndSwapUint32(&w.state, waiterWaiting, waiterCancelled)
}

// wait blocks until the waiter is signaled or the timeout expires.
// A negative timeout waits without bound.
func (w *waiter) wait(timeout time.Duration) bool {
	if timeout < 0 {
		<-w.wake
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.wake:
		return true
	case <-timer.C:
		return false
	}
}

// waitList is a FIFO queue of blocked tasks. All methods must be
// called with the owning critical section entered.
type waitList struct {
	waiters []*waiter
}

// pushBack appends a fresh waiter and returns it.
func (l *waitList) pushBack() *waiter {
	w := newWaiter()
	l.waiters = append(l.waiters, w)
	return w
}

// wakeOne wakes the waiter at the head of the list, skipping waiters
// that cancelled but are not removed yet. It reports whether a waiter
// was actually woken.
func (l *waitList) wakeOne() bool {
	for len(l.waiters) > 0 {
		w := l.waiters[0]
		l.waiters = l.waiters[1:]
		if w.signal() {
			return true
		}
	}
	return false
}

// wakeAll wakes every waiter currently on the list.
func (l *waitList) wakeAll() {
	for l.wakeOne() {
	}
}

// remove deletes a cancelled waiter from the list.
func (l *waitList) remove(target *waiter) {
	for i, w := range l.waiters {
		if w == target {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

func (l *waitList) len() int {
	return len(l.waiters)
}
