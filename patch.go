//go:build amd64 && (linux || windows)

package wrench

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/mem"
)

// writeCode copies code over live instructions at addr. The pages are made
// writable for the copy, put back, and the instruction cache flushed. A
// failed restore leaves the write in place and is only logged.
func writeCode(l *log.Entry, addr uintptr, code []byte) error {
	size := uintptr(len(code))
	old, err := mem.Protect(addr, size, mem.ReadWriteExecute)
	if err != nil {
		return errors.Wrapf(ErrProtect, "%#x: %v", addr, err)
	}

	store(addr, code)

	if _, err := mem.Protect(addr, size, old); err != nil {
		l.Warnf("Could not restore protection at %#x: %v", addr, err)
	}
	if err := mem.FlushInstructionCache(addr, size); err != nil {
		l.Warnf("Could not flush instruction cache at %#x: %v", addr, err)
	}
	return nil
}

// store writes the head of code first, in one aligned 8 byte store when it
// can, so a concurrent fetch sees either the old or the new entry.
func store(addr uintptr, code []byte) {
	dst := mem.Bytes(addr, len(code))
	if addr%8 == 0 && len(code) >= 8 {
		atomic.StoreUint64((*uint64)(unsafe.Pointer(addr)), binary.LittleEndian.Uint64(code))
		copy(dst[8:], code[8:])
		return
	}
	copy(dst, code)
}
