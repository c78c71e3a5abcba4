//go:build amd64 && (linux || windows)

package wrench

import (
	"github.com/k2io/wrench/internal/mem"
)

// how far below the source a trampoline may live
const searchRange = 0x80000000

// allocNear maps an executable block below src, as close to it as possible,
// walking the free regions downward. Free regions too small for the block
// are skipped.
func allocNear(src, size uintptr) (uintptr, error) {
	gran := mem.AllocationGranularity()
	var floor uintptr
	if src > searchRange {
		floor = src - searchRange
	}

	for addr := src; addr > floor; {
		r, err := mem.Query(addr)
		if err != nil {
			break
		}
		if r.Free {
			if p, ok := candidate(r, size, gran, floor); ok {
				if buf, err := mem.Alloc(p, size, mem.ReadWriteExecute); err == nil {
					return buf, nil
				}
			}
		}
		if r.Base == 0 {
			break
		}
		addr = r.Base - 1
	}
	return 0, ErrNoMemory
}

// candidate returns the highest aligned address in r that fits size bytes
// and stays above floor.
func candidate(r mem.Region, size, gran, floor uintptr) (uintptr, bool) {
	if r.Size < size {
		return 0, false
	}
	p := (r.End() - size) &^ (gran - 1)
	if p < r.Base || p <= floor {
		return 0, false
	}
	return p, true
}
