// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rtq

import "github.com/pkg/errors"

// check halts the caller on a precondition violation. Violations of
// this kind are programmer errors, not runtime conditions, and are
// never reported through the status vocabulary.
func check(ok bool, msg string) {
	if !ok {
		panic(errors.New("rtq: " + msg))
	}
}

// checkNoError is check for operations whose failure carries a cause.
func checkNoError(err error, msg string) {
	if err != nil {
		panic(errors.Wrap(err, "rtq: "+msg))
	}
}
