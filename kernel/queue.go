// Copyright 2016 Aleksandr Demakin. All rights reserved.

package kernel

import (
	"time"

	"github.com/pkg/errors"
)

// Queue is a bounded ring of fixed-size items constructed over
// caller-supplied memory. Item order is FIFO across all producers.
// Blocked tasks are woken in FIFO order as well; the scheduler has no
// priorities to order them by.
//
// Send, Receive, Len, Spaces and Reset are task-context entry points.
// SendFromISR, ReceiveFromISR and LenFromISR are their interrupt
// counterparts: a single attempt, no blocking, no allocation, and only
// the ISR-safe critical section is taken.
type Queue struct {
	cs       CriticalSection
	buf      []byte
	length   int
	itemSize int

	// ring state, guarded by cs.
	count int
	head  int // next slot to read
	tail  int // next slot to write

	senders   waitList // tasks blocked on a full ring
	receivers waitList // tasks blocked on an empty ring
}

// NewQueue constructs a ring of length items of itemSize bytes each
// over buf. The buffer must be exactly length*itemSize bytes.
func NewQueue(buf []byte, length, itemSize int) (*Queue, error) {
	if length <= 0 || itemSize <= 0 {
		return nil, errors.New("kernel: queue dimensions must be positive")
	}
	if len(buf) != length*itemSize {
		return nil, errors.Errorf(
			"kernel: buffer of %d bytes cannot back a %dx%d ring", len(buf), length, itemSize)
	}
	return &Queue{buf: buf, length: length, itemSize: itemSize}, nil
}

// Send copies item into the tail of the ring, waiting up to timeout
// for a free slot. A zero timeout is a single immediate attempt; a
// negative one waits without bound. It reports whether the item was
// enqueued.
func (q *Queue) Send(item []byte, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		q.cs.Enter()
		if q.count < q.length {
			q.push(item)
			q.receivers.wakeOne()
			q.cs.Exit()
			return true
		}
		if timeout == 0 {
			q.cs.Exit()
			return false
		}
		remaining := time.Duration(-1)
		if timeout > 0 {
			if remaining = time.Until(deadline); remaining <= 0 {
				q.cs.Exit()
				return false
			}
		}
		w := q.senders.pushBack()
		q.cs.Exit()
		if !q.sleep(&q.senders, w, remaining) {
			return false
		}
	}
}

// Receive copies the item at the head of the ring into item, removing
// it, and waits up to timeout for one to arrive. Timeout semantics
// match Send. It reports whether an item was dequeued.
func (q *Queue) Receive(item []byte, timeout time.Duration) bool {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		q.cs.Enter()
		if q.count > 0 {
			q.pop(item)
			q.senders.wakeOne()
			q.cs.Exit()
			return true
		}
		if timeout == 0 {
			q.cs.Exit()
			return false
		}
		remaining := time.Duration(-1)
		if timeout > 0 {
			if remaining = time.Until(deadline); remaining <= 0 {
				q.cs.Exit()
				return false
			}
		}
		w := q.receivers.pushBack()
		q.cs.Exit()
		if !q.sleep(&q.receivers, w, remaining) {
			return false
		}
	}
}

// SendFromISR makes a single non-blocking enqueue attempt. The second
// result requests a scheduler yield: it is set when the enqueue
// unblocked a waiting receiver.
func (q *Queue) SendFromISR(item []byte) (ok, yield bool) {
	q.cs.Enter()
	if q.count == q.length {
		q.cs.Exit()
		return false, false
	}
	q.push(item)
	yield = q.receivers.wakeOne()
	q.cs.Exit()
	return true, yield
}

// ReceiveFromISR makes a single non-blocking dequeue attempt. The
// yield flag is set when the dequeue unblocked a waiting sender.
func (q *Queue) ReceiveFromISR(item []byte) (ok, yield bool) {
	q.cs.Enter()
	if q.count == 0 {
		q.cs.Exit()
		return false, false
	}
	q.pop(item)
	yield = q.senders.wakeOne()
	q.cs.Exit()
	return true, yield
}

// Len returns the number of items currently queued. The value is a
// snapshot and may be stale by the time the caller observes it.
func (q *Queue) Len() int {
	q.cs.Enter()
	count := q.count
	q.cs.Exit()
	return count
}

// LenFromISR is the interrupt-context variant of Len. The two differ
// only in which concurrency protection applies, not in meaning.
func (q *Queue) LenFromISR() int {
	q.cs.Enter()
	count := q.count
	q.cs.Exit()
	return count
}

// Spaces returns the number of free slots. Like Len, the value is a
// snapshot immediately stale with respect to concurrent activity.
func (q *Queue) Spaces() int {
	q.cs.Enter()
	spaces := q.length - q.count
	q.cs.Exit()
	return spaces
}

// Length returns the fixed item capacity of the ring.
func (q *Queue) Length() int {
	return q.length
}

// ItemSize returns the fixed byte size of every item.
func (q *Queue) ItemSize() int {
	return q.itemSize
}

// EnterCriticalFromISR enters the ring's critical section so a caller
// can combine RawLen with Length into one consistent computation.
func (q *Queue) EnterCriticalFromISR() {
	q.cs.Enter()
}

// ExitCriticalFromISR leaves the ring's critical section.
func (q *Queue) ExitCriticalFromISR() {
	q.cs.Exit()
}

// RawLen reads the item count with no synchronization at all. Callers
// that need the value consistent with Length enter the critical
// section themselves.
func (q *Queue) RawLen() int {
	return q.count
}

// Reset discards all queued items and wakes tasks blocked on a full
// ring, since every slot is free again. Tasks blocked on an empty ring
// keep waiting.
func (q *Queue) Reset() {
	q.cs.Enter()
	q.count = 0
	q.head = 0
	q.tail = 0
	q.senders.wakeAll()
	q.cs.Exit()
}

// Delete releases the wait-list resources and detaches the buffer.
// The ring must not be in use by any other context.
func (q *Queue) Delete() {
	q.cs.Enter()
	q.buf = nil
	q.count = 0
	q.head = 0
	q.tail = 0
	q.senders = waitList{}
	q.receivers = waitList{}
	q.cs.Exit()
}

// push stores item in the tail slot. Must be called with cs entered
// and a free slot available.
func (q *Queue) push(item []byte) {
	copy(q.buf[q.tail*q.itemSize:(q.tail+1)*q.itemSize], item)
	q.tail = (q.tail + 1) % q.length
	q.count++
}

// pop copies the head slot into item. Must be called with cs entered
// and at least one item queued.
func (q *Queue) pop(item []byte) {
	copy(item, q.buf[q.head*q.itemSize:(q.head+1)*q.itemSize])
	q.head = (q.head + 1) % q.length
	q.count--
}

// sleep blocks on w outside the critical section. It reports false
// when the wait timed out. A wake racing with the timeout wins: the
// pending signal is consumed and the caller retries its claim.
func (q *Queue) sleep(l *waitList, w *waiter, timeout time.Duration) bool {
	if w.wait(timeout) {
		return true
	}
	q.cs.Enter()
	cancelled := w.cancel()
	if cancelled {
		l.remove(w)
	}
	q.cs.Exit()
	if cancelled {
		return false
	}
	<-w.wake
	return true
}
