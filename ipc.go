// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rtq

import (
	"io"
	"time"
)

// Messenger is an interface which must be satisfied by any
// message queue implementation.
type Messenger interface {
	Send(object interface{}) error
	Receive(object interface{}) error
	io.Closer
}

// TimedMessenger is a Messenger, which supports send/receive timeouts.
type TimedMessenger interface {
	Messenger
	SendTimeout(object interface{}, timeout time.Duration) error
	ReceiveTimeout(object interface{}, timeout time.Duration) error
}

// Destroyer is an object which can be permanently removed.
type Destroyer interface {
	Destroy() error
}
