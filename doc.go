// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package rtq provides a bounded FIFO channel of fixed-size messages
// for cooperative real-time workloads. Messages are opaque binary
// records copied by value into and out of a ring buffer; producers and
// consumers may run either in task context, where they are allowed to
// block with a timeout, or in interrupt context, where blocking is
// forbidden and dedicated non-blocking entry points must be used.
//
// The queue itself owns only its buffer and the fixed metadata recorded
// at creation. Blocking, wakeups and context detection are delegated to
// the kernel subpackage, which models the scheduler the queue runs on.
package rtq
