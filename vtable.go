//go:build amd64 && (linux || windows)

package wrench

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/logging"
	"github.com/k2io/wrench/internal/mem"
)

// PatchSlot swaps the pointer at table[index] for replacement and returns
// the previous one. The slot is made writable only around the exchange. If
// the protection cannot be relaxed nothing is written; if it cannot be put
// back the patch stays and a warning is logged.
func (h *Hooker) PatchSlot(table uintptr, index int, replacement uintptr) (uintptr, error) {
	l := logging.Func(h.log, "PatchSlot")
	slot := table + uintptr(index)*ptrSize

	old, err := mem.Protect(slot, ptrSize, mem.ReadWrite)
	if err != nil {
		l.Errorf("Could not unprotect slot %d of %#x: %v", index, table, err)
		return 0, errors.Wrapf(ErrProtect, "slot %d of %#x: %v", index, table, err)
	}
	prev := atomic.SwapUintptr((*uintptr)(unsafe.Pointer(slot)), replacement)
	if _, err := mem.Protect(slot, ptrSize, old); err != nil {
		l.Warnf("Could not restore protection of slot %d of %#x: %v", index, table, err)
	}
	return prev, nil
}

// VTable is a table of function pointers in an object.
type VTable struct {
	hooker *Hooker
	base   uintptr

	mu      sync.Mutex
	detours []*Trampoline
}

// NewVTable wraps the table at base.
func NewVTable(h *Hooker, base uintptr) *VTable {
	return &VTable{hooker: h, base: base}
}

// Valid reports whether the table has an address.
func (v *VTable) Valid() bool {
	return v != nil && v.base != 0
}

// Base returns the table address.
func (v *VTable) Base() uintptr {
	return v.base
}

// Slot reads the pointer at index i.
func (v *VTable) Slot(i int) uintptr {
	return atomic.LoadUintptr((*uintptr)(unsafe.Pointer(v.base + uintptr(i)*ptrSize)))
}

// Hook points slot i at replacement and returns what it held.
func (v *VTable) Hook(i int, replacement uintptr) (uintptr, error) {
	if !v.Valid() {
		return 0, errors.New("nil vtable")
	}
	return v.hooker.PatchSlot(v.base, i, replacement)
}

// Detour detours the function slot i points at, leaving the slot alone, so
// every table sharing the function is covered. The trampoline is released
// with the table.
func (v *VTable) Detour(i int, replacement uintptr) (*Trampoline, error) {
	if !v.Valid() {
		return nil, errors.New("nil vtable")
	}
	t, err := v.hooker.Detour(v.Slot(i), replacement)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	v.detours = append(v.detours, t)
	v.mu.Unlock()
	return t, nil
}

// Close releases the detours made through the table.
func (v *VTable) Close() error {
	if v == nil {
		return nil
	}
	v.mu.Lock()
	detours := v.detours
	v.detours = nil
	v.mu.Unlock()

	var first error
	for _, t := range detours {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Method names a slot and the Go signature of the function in it.
type Method[F any] struct {
	Index int
}

// Invoke returns the function in the method's slot of table, typed F. The
// slot must hold Go-convention code; see MakeFunc.
func Invoke[F any](table uintptr, m Method[F]) F {
	slot := table + uintptr(m.Index)*ptrSize
	return MakeFunc[F](atomic.LoadUintptr((*uintptr)(unsafe.Pointer(slot))))
}

// Of is Invoke on a VTable.
func (m Method[F]) Of(v *VTable) F {
	return Invoke[F](v.base, m)
}
