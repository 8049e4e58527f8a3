// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rtq

import (
	"sync"
	"testing"
	"time"

	"bitbucket.org/avd/go-rtq/kernel"

	"github.com/stretchr/testify/assert"
)

// inISR runs f in interrupt context.
func inISR(f func()) {
	kernel.EnterISR()
	defer kernel.ExitISR()
	f()
}

func TestNewQueueIsEmpty(t *testing.T) {
	a := assert.New(t)
	q := New(4, 4)
	defer q.Close()
	a.Equal(4, q.Capacity())
	a.Equal(4, q.MessageSize())
	a.Equal(0, q.Count())
	a.Equal(4, q.Space())
}

func TestNewChecksPreconditions(t *testing.T) {
	a := assert.New(t)
	a.Panics(func() {
		New(0, 4)
	})
	a.Panics(func() {
		New(4, 0)
	})
	a.Panics(func() {
		inISR(func() {
			New(4, 4)
		})
	})
}

func TestFifoOrder(t *testing.T) {
	a := assert.New(t)
	q := New(4, 4)
	defer q.Close()

	for msg := uint32(1); msg <= 4; msg++ {
		a.NoError(q.Put(msg, 0))
	}
	a.Equal(ErrResource, q.Put(uint32(5), 0))

	for want := uint32(1); want <= 4; want++ {
		var got uint32
		a.NoError(q.Get(&got, 0))
		a.Equal(want, got)
	}
	var got uint32
	a.Equal(ErrResource, q.Get(&got, 0))
}

func TestPutParameterChecks(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()

	a.Equal(ErrParameter, q.Put(nil, 0))
	// wrong message size.
	a.Equal(ErrParameter, q.Put(uint64(1), 0))
	a.Equal(ErrParameter, q.Put([]byte{1, 2}, 0))
	// reference-bearing payloads cannot be copied by value.
	a.Equal(ErrParameter, q.Put("text", 0))
	a.Equal(0, q.Count())
}

func TestGetParameterChecks(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()
	a.NoError(q.Put(uint32(1), 0))

	a.Equal(ErrParameter, q.Get(nil, 0))
	// a plain value would receive into an invisible copy.
	a.Equal(ErrParameter, q.Get(uint32(0), 0))
	var wrong uint64
	a.Equal(ErrParameter, q.Get(&wrong, 0))
	a.Equal(1, q.Count())
}

func TestCountSpaceAccounting(t *testing.T) {
	a := assert.New(t)
	q := New(3, 4)
	defer q.Close()
	for i := 0; i < 3; i++ {
		a.Equal(q.Capacity(), q.Count()+q.Space())
		a.NoError(q.Put(uint32(i), 0))
	}
	a.Equal(q.Capacity(), q.Count()+q.Space())
	var got uint32
	a.NoError(q.Get(&got, 0))
	a.Equal(q.Capacity(), q.Count()+q.Space())
}

func TestISRWaitIsParameterError(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()
	a.NoError(q.Put(uint32(1), 0))

	inISR(func() {
		var got uint32
		a.Equal(ErrParameter, q.Put(uint32(2), time.Millisecond))
		a.Equal(ErrParameter, q.Put(uint32(2), Forever))
		a.Equal(ErrParameter, q.Get(&got, time.Millisecond))
		a.Equal(ErrParameter, q.Get(&got, Forever))
	})
	a.Equal(1, q.Count())
}

func TestISRPutGet(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()

	inISR(func() {
		a.NoError(q.PutISR(uint32(1)))
		// a zero timeout from interrupt context takes the ISR path.
		a.NoError(q.Put(uint32(2), 0))
		a.Equal(ErrResource, q.PutISR(uint32(3)))
		a.Equal(2, q.Count())
		a.Equal(0, q.Space())

		var got uint32
		a.NoError(q.GetISR(&got))
		a.Equal(uint32(1), got)
		a.NoError(q.Get(&got, 0))
		a.Equal(uint32(2), got)
		a.Equal(ErrResource, q.GetISR(&got))
	})
}

func TestISRParameterChecks(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()
	inISR(func() {
		a.Equal(ErrParameter, q.PutISR(nil))
		a.Equal(ErrParameter, q.PutISR(uint64(1)))
		var got uint32
		a.Equal(ErrParameter, q.GetISR(got))
	})
	a.Equal(0, q.Count())
}

func TestReset(t *testing.T) {
	a := assert.New(t)
	q := New(4, 4)
	defer q.Close()
	for msg := uint32(1); msg <= 3; msg++ {
		a.NoError(q.Put(msg, 0))
	}

	inISR(func() {
		a.Equal(ErrISR, q.Reset())
	})
	a.Equal(3, q.Count())

	a.NoError(q.Reset())
	a.Equal(0, q.Count())
	a.Equal(4, q.Space())
	a.Equal(4, q.Capacity())
	a.Equal(4, q.MessageSize())
}

func TestResetReleasesBlockedProducer(t *testing.T) {
	a := assert.New(t)
	q := New(1, 4)
	defer q.Close()
	a.NoError(q.Put(uint32(1), 0))

	done := make(chan error)
	go func() {
		done <- q.Put(uint32(2), 5*time.Second)
	}()
	time.Sleep(100 * time.Millisecond)
	a.NoError(q.Reset())
	a.NoError(<-done)

	var got uint32
	a.NoError(q.Get(&got, 0))
	a.Equal(uint32(2), got)
}

func TestBlockedGetWokenByPut(t *testing.T) {
	a := assert.New(t)
	q := New(1, 4)
	defer q.Close()

	type result struct {
		err error
		msg uint32
	}
	done := make(chan result)
	go func() {
		var got uint32
		err := q.Get(&got, 5*time.Second)
		done <- result{err, got}
	}()
	time.Sleep(100 * time.Millisecond)
	a.NoError(q.Put(uint32(99), 0))
	res := <-done
	a.NoError(res.err)
	a.Equal(uint32(99), res.msg)
}

func TestGetTimeoutExpires(t *testing.T) {
	a := assert.New(t)
	q := New(1, 4)
	defer q.Close()
	var got uint32
	started := time.Now()
	a.Equal(ErrTimeout, q.Get(&got, 50*time.Millisecond))
	a.True(time.Since(started) >= 50*time.Millisecond)
	a.Equal(0, q.Count())
}

func TestPutTimeoutExpires(t *testing.T) {
	a := assert.New(t)
	q := New(1, 4)
	defer q.Close()
	a.NoError(q.Put(uint32(1), 0))
	a.Equal(ErrTimeout, q.Put(uint32(2), 50*time.Millisecond))
	a.Equal(1, q.Count())
}

func TestStructMessages(t *testing.T) {
	type sample struct {
		Kind  uint16
		Flags uint16
		Value uint32
	}
	a := assert.New(t)
	q := New(2, 8)
	defer q.Close()

	sent := sample{Kind: 3, Flags: 0x10, Value: 0xDEADBEEF}
	a.NoError(q.Put(sent, 0))
	var received sample
	a.NoError(q.Get(&received, 0))
	a.Equal(sent, received)
}

func TestByteSliceMessages(t *testing.T) {
	a := assert.New(t)
	q := New(2, 4)
	defer q.Close()
	a.NoError(q.Put([]byte{1, 2, 3, 4}, 0))
	out := make([]byte, 4)
	a.NoError(q.Get(out, 0))
	a.Equal([]byte{1, 2, 3, 4}, out)
}

func TestMessengerInterface(t *testing.T) {
	a := assert.New(t)
	var mq TimedMessenger = New(1, 4)
	defer mq.Close()

	go func() {
		a.NoError(mq.Send(uint32(7)))
	}()
	var got uint32
	a.NoError(mq.Receive(&got))
	a.Equal(uint32(7), got)
	a.Equal(ErrTimeout, mq.ReceiveTimeout(&got, 20*time.Millisecond))
}

func TestCloseDetaches(t *testing.T) {
	a := assert.New(t)
	q := New(1, 4)
	a.NoError(q.Close())
	a.Panics(func() {
		q.Put(uint32(1), 0)
	})
	a.Panics(func() {
		q.Close()
	})

	q2 := New(1, 4)
	a.Panics(func() {
		inISR(func() {
			q2.Close()
		})
	})
	a.NoError(q2.Close())
}

func TestConcurrentPutGet(t *testing.T) {
	a := assert.New(t)
	q := New(8, 4)
	defer q.Close()
	const (
		producers = 4
		consumers = 4
		perWorker = 250
	)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base uint32) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				a.NoError(q.Put(base+uint32(i), Forever))
			}
		}(uint32(p) * perWorker)
	}
	var mu sync.Mutex
	var sum uint64
	for c := 0; c < consumers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				var got uint32
				a.NoError(q.Get(&got, Forever))
				mu.Lock()
				sum += uint64(got)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := producers * perWorker
	a.Equal(uint64(total)*uint64(total-1)/2, sum)
	a.Equal(0, q.Count())
}
