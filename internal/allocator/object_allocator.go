// Copyright 2015 Aleksandr Demakin. All rights reserved.

// Package allocator exposes the raw byte representation of objects
// that are stored continuously in memory.
package allocator

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
)

// ObjectData returns the underlying byte representation of an object.
// The object must not contain references: no strings, maps, channels,
// functions or nested pointers. A pointer or a slice is allowed at the
// top level only; a pointer contributes its pointee, a slice its
// entire data. The returned slice aliases the object's memory.
func ObjectData(object interface{}) ([]byte, error) {
	value := reflect.ValueOf(object)
	if !value.IsValid() {
		return nil, errors.New("invalid object")
	}
	if err := checkType(value.Type(), 0); err != nil {
		return nil, err
	}
	addr := objectAddress(value)
	if addr == nil {
		return nil, errors.New("nil object")
	}
	return unsafe.Slice((*byte)(addr), objectSize(value)), nil
}

// IsReferenceType reports whether the object is a pointer or a slice.
func IsReferenceType(object interface{}) bool {
	kind := reflect.ValueOf(object).Kind()
	return kind == reflect.Slice || kind == reflect.Ptr
}

// CheckObjectReferences reports whether an object can be safely copied
// byte by byte, i.e. carries no reference types inside.
func CheckObjectReferences(object interface{}) error {
	return checkType(reflect.ValueOf(object).Type(), 0)
}

// objectAddress returns the address of the object's data. For a slice
// or a pointer that is the data it refers to.
func objectAddress(value reflect.Value) unsafe.Pointer {
	switch value.Kind() {
	case reflect.Slice, reflect.Ptr:
		return unsafe.Pointer(value.Pointer())
	default:
		return interfaceData(value.Interface())
	}
}

// interfaceData extracts the data word of an interface holding a
// non-pointer value. Such values are always boxed, so the word points
// at a copy of the object.
func interfaceData(v interface{}) unsafe.Pointer {
	type iface struct {
		typ  unsafe.Pointer
		data unsafe.Pointer
	}
	return (*iface)(unsafe.Pointer(&v)).data
}

func objectSize(value reflect.Value) int {
	switch value.Kind() {
	case reflect.Slice:
		return value.Len() * int(value.Type().Elem().Size())
	case reflect.Ptr:
		return int(value.Type().Elem().Size())
	default:
		return int(value.Type().Size())
	}
}

func checkType(t reflect.Type, depth int) error {
	switch kind := t.Kind(); kind {
	case reflect.Array:
		return checkType(t.Elem(), depth+1)
	case reflect.Slice:
		if depth != 0 {
			return errors.New("unexpected slice")
		}
		return checkType(t.Elem(), depth+1)
	case reflect.Ptr:
		if depth != 0 {
			return errors.New("unexpected pointer")
		}
		return checkType(t.Elem(), depth+1)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if err := checkType(t.Field(i).Type, depth+1); err != nil {
				return errors.Wrapf(err, "field %s", t.Field(i).Name)
			}
		}
		return nil
	default:
		if kind >= reflect.Bool && kind <= reflect.Complex128 {
			return nil
		}
		if kind == reflect.UnsafePointer {
			return nil
		}
		return errors.Errorf("unsupported type %q", kind.String())
	}
}
