//go:build windows

package mem

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

const (
	ReadWrite        Prot = windows.PAGE_READWRITE
	ReadExecute      Prot = windows.PAGE_EXECUTE_READ
	ReadWriteExecute Prot = windows.PAGE_EXECUTE_READWRITE
)

const memFree = 0x10000

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procGetSystemInfo         = kernel32.NewProc("GetSystemInfo")
	procFlushInstructionCache = kernel32.NewProc("FlushInstructionCache")
)

type systemInfo struct {
	ProcessorArchitecture     uint16
	Reserved                  uint16
	PageSize                  uint32
	MinimumApplicationAddress uintptr
	MaximumApplicationAddress uintptr
	ActiveProcessorMask       uintptr
	NumberOfProcessors        uint32
	ProcessorType             uint32
	AllocationGranularity     uint32
	ProcessorLevel            uint16
	ProcessorRevision         uint16
}

var (
	sysInfoOnce sync.Once
	sysInfo     systemInfo
)

func getSystemInfo() systemInfo {
	sysInfoOnce.Do(func() {
		procGetSystemInfo.Call(uintptr(unsafe.Pointer(&sysInfo)))
		if sysInfo.AllocationGranularity == 0 {
			sysInfo.AllocationGranularity = 0x10000
		}
	})
	return sysInfo
}

// AllocationGranularity returns the alignment of addresses passed to Alloc.
func AllocationGranularity() uintptr {
	return uintptr(getSystemInfo().AllocationGranularity)
}

// Query describes the region containing addr.
func Query(addr uintptr) (Region, error) {
	var mbi windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
		return Region{}, errors.Wrapf(err, "VirtualQuery %#x", addr)
	}
	return Region{
		Base: mbi.BaseAddress,
		Size: mbi.RegionSize,
		Free: mbi.State == memFree,
		Prot: Prot(mbi.Protect),
	}, nil
}

// Alloc reserves and commits size bytes at exactly addr, or anywhere if addr
// is zero.
func Alloc(addr, size uintptr, prot Prot) (uintptr, error) {
	p, err := windows.VirtualAlloc(addr, size, windows.MEM_RESERVE|windows.MEM_COMMIT, uint32(prot))
	if err != nil {
		return 0, errors.Wrapf(err, "VirtualAlloc %#x", addr)
	}
	if addr != 0 && p != addr {
		_ = Free(p, size)
		return 0, errors.Errorf("VirtualAlloc %#x: placed at %#x", addr, p)
	}
	return p, nil
}

// Free releases an allocation returned by Alloc.
func Free(addr, size uintptr) error {
	if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
		return errors.Wrapf(err, "VirtualFree %#x", addr)
	}
	return nil
}

// Protect changes the protection of the pages covering [addr, addr+size) and
// returns the previous protection.
func Protect(addr, size uintptr, prot Prot) (Prot, error) {
	var old uint32
	if err := windows.VirtualProtect(addr, size, uint32(prot), &old); err != nil {
		return 0, errors.Wrapf(err, "VirtualProtect %#x", addr)
	}
	return Prot(old), nil
}

// FlushInstructionCache flushes the instruction cache for the given range of
// the current process.
func FlushInstructionCache(addr, size uintptr) error {
	r, _, err := procFlushInstructionCache.Call(uintptr(windows.CurrentProcess()), addr, size)
	if r == 0 {
		return errors.Wrapf(err, "FlushInstructionCache %#x", addr)
	}
	return nil
}
