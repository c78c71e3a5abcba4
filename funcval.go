package wrench

import (
	"reflect"
	"unsafe"
)

// funcval is the runtime representation of a Go func value.
type funcval struct {
	fn uintptr
	// variable-size, fn-specific data here
}

// MakeFunc returns a func of type F whose code is at addr. The code must
// follow the Go internal calling convention for F: trampolines of detoured
// Go-convention functions qualify, native functions do not.
func MakeFunc[F any](addr uintptr) F {
	var f F
	if typ := reflect.TypeOf(f); typ == nil || typ.Kind() != reflect.Func {
		panic("wrench: MakeFunc of non-func type")
	}
	fv := &funcval{fn: addr}
	*(*unsafe.Pointer)(unsafe.Pointer(&f)) = unsafe.Pointer(fv)
	return f
}

// FuncAddr returns the entry point of a func value. Closures report the code
// they share, not their captured data.
func FuncAddr(f any) uintptr {
	v := reflect.ValueOf(f)
	if v.Kind() != reflect.Func {
		panic("wrench: FuncAddr of non-func value")
	}
	return v.Pointer()
}
