package disasm

import "unsafe"

// Memory reads raw bytes of an address space.
type Memory interface {
	Read(addr uintptr, n int) []byte
}

type liveMemory struct{}

// Read returns a view of n bytes at addr in the current process. The range is
// not validated, it must already be mapped and readable.
func (liveMemory) Read(addr uintptr, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), n)
}

// Live reads the memory of the current process.
var Live Memory = liveMemory{}

// Buffer is a Memory backed by a byte slice that appears to be mapped at Base.
// Reads are truncated at the end of Data.
type Buffer struct {
	Base uintptr
	Data []byte
}

func (b Buffer) Read(addr uintptr, n int) []byte {
	if addr < b.Base || addr >= b.Base+uintptr(len(b.Data)) {
		return nil
	}
	off := int(addr - b.Base)
	end := off + n
	if end > len(b.Data) {
		end = len(b.Data)
	}
	return b.Data[off:end]
}
