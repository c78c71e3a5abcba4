//go:build linux

package mem

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	ReadWrite        Prot = unix.PROT_READ | unix.PROT_WRITE
	ReadExecute      Prot = unix.PROT_READ | unix.PROT_EXEC
	ReadWriteExecute Prot = unix.PROT_READ | unix.PROT_WRITE | unix.PROT_EXEC
)

// AllocationGranularity returns the alignment of addresses passed to Alloc.
func AllocationGranularity() uintptr {
	return PageSize()
}

// Query describes the region containing addr.
func Query(addr uintptr) (Region, error) {
	f, err := os.Open("/proc/self/maps")
	if err != nil {
		return Region{}, errors.Wrap(err, "query")
	}
	defer f.Close()

	maps, err := parseMaps(f)
	if err != nil {
		return Region{}, errors.Wrap(err, "query")
	}
	return lookup(maps, addr), nil
}

// Alloc maps size bytes at exactly addr, or anywhere if addr is zero.
func Alloc(addr, size uintptr, prot Prot) (uintptr, error) {
	flags := unix.MAP_PRIVATE | unix.MAP_ANON
	if addr != 0 {
		flags |= unix.MAP_FIXED_NOREPLACE
	}
	p, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, size, uintptr(prot), uintptr(flags), ^uintptr(0), 0)
	if errno != 0 {
		return 0, errors.Wrapf(errno, "mmap %#x", addr)
	}
	// kernels before 4.17 treat the address as a hint
	if addr != 0 && p != addr {
		_ = Free(p, size)
		return 0, errors.Errorf("mmap %#x: placed at %#x", addr, p)
	}
	return p, nil
}

// Free releases a mapping returned by Alloc.
func Free(addr, size uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_MUNMAP, addr, size, 0)
	if errno != 0 {
		return errors.Wrapf(errno, "munmap %#x", addr)
	}
	return nil
}

// Protect changes the protection of the pages covering [addr, addr+size) and
// returns the protection the first of them had before.
func Protect(addr, size uintptr, prot Prot) (Prot, error) {
	old := ReadExecute
	if r, err := Query(addr); err == nil && !r.Free {
		old = r.Prot
	}
	start, length := calcBoundaries(addr, size)
	if err := unix.Mprotect(Bytes(start, int(length)), int(prot)); err != nil {
		return 0, errors.Wrapf(err, "mprotect %#x", addr)
	}
	return old, nil
}

// FlushInstructionCache is a no-op: x86 keeps instruction fetch coherent with
// stores.
func FlushInstructionCache(addr, size uintptr) error {
	return nil
}
