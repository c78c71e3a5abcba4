//go:build windows && amd64

package wrench

import (
	"sync/atomic"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// CallNative calls the native function at addr with the platform calling
// convention. Pointers converted to uintptr in the call expression are kept
// on the heap and alive until it returns.
//
//go:uintptrescapes
func CallNative(addr uintptr, args ...uintptr) uintptr {
	r, _, _ := syscall.SyscallN(addr, args...)
	return r
}

// Callback returns a native-callable pointer to fn, which must take and
// return uintptr-sized values. Callbacks are never freed.
func Callback(fn any) uintptr {
	return windows.NewCallback(fn)
}

// NativeMethod names a slot holding a native function.
type NativeMethod struct {
	Index int
}

// Call invokes the method found in table. COM methods take the object as
// their first argument.
//
//go:uintptrescapes
func (m NativeMethod) Call(table uintptr, args ...uintptr) uintptr {
	slot := table + uintptr(m.Index)*ptrSize
	return CallNative(atomic.LoadUintptr((*uintptr)(unsafe.Pointer(slot))), args...)
}

// ObjectTable returns the vtable of a COM object.
func ObjectTable(object uintptr) uintptr {
	return *(*uintptr)(unsafe.Pointer(object))
}
