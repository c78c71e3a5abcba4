// Package mem wraps the virtual memory primitives the patching engine needs:
// querying, allocating, protecting and flushing pages of the current process.
package mem

import (
	"os"
	"unsafe"
)

// Prot is a native page protection value.
type Prot uint32

// Region is a run of pages sharing the same state.
type Region struct {
	Base uintptr
	Size uintptr
	// Free reports an unmapped (and unreserved) region.
	Free bool
	Prot Prot
}

// End returns the first address past the region.
func (r Region) End() uintptr {
	return r.Base + r.Size
}

// Bytes returns a view of n bytes at addr.
func Bytes(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// PageSize returns the size of a memory page.
func PageSize() uintptr {
	return uintptr(os.Getpagesize())
}

func calcBoundaries(addr, size uintptr) (uintptr, uintptr) {
	pageSize := PageSize()
	areaStart := addr &^ (pageSize - 1)
	areaSize := (addr + size) - areaStart

	return areaStart, areaSize
}
