// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rtq

import (
	"time"

	"bitbucket.org/avd/go-rtq/internal/allocator"
	"bitbucket.org/avd/go-rtq/kernel"
)

// Forever makes Put and Get wait without bound. Any negative timeout
// is treated the same way; a zero timeout means a single attempt.
const Forever = time.Duration(-1)

// this is to ensure, that the message queue
// satisfies the queue interfaces.
var (
	_ TimedMessenger = (*MessageQueue)(nil)
	_ Destroyer      = (*MessageQueue)(nil)
)

// MessageQueue is a bounded FIFO channel of fixed-size messages. The
// instance owns a buffer of Capacity*MessageSize bytes and a kernel
// ring constructed over it; all blocking and wakeups are the kernel's.
//
// Any reference-free Go value whose byte size equals MessageSize can
// be passed through the queue: it is copied in by value and copied out
// into a caller-supplied pointer or slice.
type MessageQueue struct {
	ring    *kernel.Queue
	buf     []byte
	msgSize int
}

// New creates a queue holding up to msgCount messages of msgSize bytes
// each. It must be called from task context with positive arguments;
// violations are fatal, as is a failure to construct the kernel ring.
// The returned instance is never nil.
func New(msgCount, msgSize int) *MessageQueue {
	check(!kernel.IsISR(), "queue created from interrupt context")
	check(msgCount > 0, "queue without capacity")
	check(msgSize > 0, "queue without message size")

	buf := make([]byte, msgCount*msgSize)
	ring, err := kernel.NewQueue(buf, msgCount, msgSize)
	checkNoError(err, "kernel ring construction failed")

	return &MessageQueue{ring: ring, buf: buf, msgSize: msgSize}
}

// Put copies a message into the tail of the queue, waiting up to
// timeout for a free slot. From interrupt context any non-zero timeout
// is ErrParameter, and a zero timeout behaves as PutISR. From task
// context a failed zero-timeout attempt is ErrResource, a failed
// bounded wait is ErrTimeout.
func (q *MessageQueue) Put(object interface{}, timeout time.Duration) error {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	if kernel.IsISR() {
		if timeout != 0 {
			return ErrParameter
		}
		return q.PutISR(object)
	}
	data, err := q.messageData(object)
	if err != nil {
		return err
	}
	if !q.ring.Send(data, timeout) {
		if timeout != 0 {
			return ErrTimeout
		}
		return ErrResource
	}
	return nil
}

// PutISR is the interrupt-context entry point of Put. It cannot
// express a wait: the enqueue is a single attempt, and a full queue is
// ErrResource. When the enqueue unblocks a waiting consumer, a
// scheduler yield is requested so that the consumer runs as soon as
// the handler completes.
func (q *MessageQueue) PutISR(object interface{}) error {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	data, err := q.messageData(object)
	if err != nil {
		return err
	}
	ok, yield := q.ring.SendFromISR(data)
	if !ok {
		return ErrResource
	}
	kernel.YieldFromISR(yield)
	return nil
}

// Get copies the message at the head of the queue into object,
// removing it. The object must be a pointer or a slice of exactly
// MessageSize bytes. Context and timeout semantics mirror Put.
func (q *MessageQueue) Get(object interface{}, timeout time.Duration) error {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	if kernel.IsISR() {
		if timeout != 0 {
			return ErrParameter
		}
		return q.GetISR(object)
	}
	data, err := q.receiveBuffer(object)
	if err != nil {
		return err
	}
	if !q.ring.Receive(data, timeout) {
		if timeout != 0 {
			return ErrTimeout
		}
		return ErrResource
	}
	return nil
}

// GetISR is the interrupt-context entry point of Get: a single
// non-blocking attempt, with a yield request when the dequeue unblocks
// a waiting producer.
func (q *MessageQueue) GetISR(object interface{}) error {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	data, err := q.receiveBuffer(object)
	if err != nil {
		return err
	}
	ok, yield := q.ring.ReceiveFromISR(data)
	if !ok {
		return ErrResource
	}
	kernel.YieldFromISR(yield)
	return nil
}

// Capacity returns the maximum number of messages the queue can hold.
func (q *MessageQueue) Capacity() int {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	return q.ring.Length()
}

// MessageSize returns the fixed byte size of every message.
func (q *MessageQueue) MessageSize() int {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	return q.msgSize
}

// Count returns the number of messages currently queued. The value is
// a snapshot; without external synchronization it may be stale by the
// time the caller acts on it.
func (q *MessageQueue) Count() int {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	if kernel.IsISR() {
		return q.ring.LenFromISR()
	}
	return q.ring.Len()
}

// Space returns the number of free message slots. From interrupt
// context the kernel has no dedicated entry point for this value, so
// it is computed from capacity and count inside an explicit critical
// section. The task-context path reads the kernel directly. Either
// way the result is a snapshot with the same staleness caveat as
// Count.
func (q *MessageQueue) Space() int {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	if kernel.IsISR() {
		q.ring.EnterCriticalFromISR()
		space := q.ring.Length() - q.ring.RawLen()
		q.ring.ExitCriticalFromISR()
		return space
	}
	return q.ring.Spaces()
}

// Reset discards all queued messages, keeping capacity and message
// size. Producers blocked on a full queue are released. From interrupt
// context it reports ErrISR and mutates nothing.
func (q *MessageQueue) Reset() error {
	check(q != nil && q.ring != nil, "operation on a nil queue")
	if kernel.IsISR() {
		return ErrISR
	}
	q.ring.Reset()
	return nil
}

// Close releases the kernel resources and detaches the buffer. It must
// be called from task context, never concurrently with any other
// operation on the instance, and at most once; a later operation trips
// the nil-instance check instead of touching freed state.
func (q *MessageQueue) Close() error {
	check(q != nil && q.ring != nil, "close of a nil queue")
	check(!kernel.IsISR(), "queue closed from interrupt context")
	q.ring.Delete()
	q.ring = nil
	q.buf = nil
	return nil
}

// Destroy is Close; the queue owns no resources beyond its instance.
func (q *MessageQueue) Destroy() error {
	return q.Close()
}

// Send enqueues object, blocking while the queue is full.
func (q *MessageQueue) Send(object interface{}) error {
	return q.Put(object, Forever)
}

// Receive dequeues a message into object, blocking while the queue
// is empty.
func (q *MessageQueue) Receive(object interface{}) error {
	return q.Get(object, Forever)
}

// SendTimeout enqueues object, waiting for space at most timeout.
func (q *MessageQueue) SendTimeout(object interface{}, timeout time.Duration) error {
	return q.Put(object, timeout)
}

// ReceiveTimeout dequeues a message into object, waiting for one at
// most timeout.
func (q *MessageQueue) ReceiveTimeout(object interface{}, timeout time.Duration) error {
	return q.Get(object, timeout)
}

// messageData returns the raw bytes of an outgoing message. Anything
// that is not a reference-free object of exactly msgSize bytes is
// ErrParameter.
func (q *MessageQueue) messageData(object interface{}) ([]byte, error) {
	if object == nil {
		return nil, ErrParameter
	}
	data, err := allocator.ObjectData(object)
	if err != nil || len(data) != q.msgSize {
		return nil, ErrParameter
	}
	return data, nil
}

// receiveBuffer returns the raw destination bytes for an incoming
// message. The object must additionally be a pointer or a slice, so
// the copied-out message is visible to the caller.
func (q *MessageQueue) receiveBuffer(object interface{}) ([]byte, error) {
	if object == nil || !allocator.IsReferenceType(object) {
		return nil, ErrParameter
	}
	data, err := allocator.ObjectData(object)
	if err != nil || len(data) != q.msgSize {
		return nil, ErrParameter
	}
	return data, nil
}
