//go:build amd64 && (linux || windows)

package wrench

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/logging"
	"github.com/k2io/wrench/internal/mem"
)

const (
	// displaced bytes needed to hold a full continuation stub
	minPatchSize = 16
	// bytes allocated per trampoline
	trampolineSize = 0x1000

	jumpSize      = 6  // jmp [rip+disp32]
	stubSize      = 16 // continuation stub
	stubImmOffset = 3  // imm64 of the movabs in the stub
	ptrSize       = 8

	nop = 0x90
)

// layout describes the trampoline page:
//
//	[0, L)         displaced instructions
//	[L, L+16)      continuation stub back to source+L
//	[L+16, L+24)   address of the replacement, read by the patched source
type layout struct {
	displaced   []byte
	resume      uintptr
	replacement uintptr
}

func (l layout) stubOffset() int {
	return len(l.displaced)
}

func (l layout) slotOffset() int {
	return len(l.displaced) + stubSize
}

func (l layout) size() int {
	return l.slotOffset() + ptrSize
}

// assemble builds the trampoline code.
func assemble(l layout) []byte {
	code := make([]byte, l.size())
	copy(code, l.displaced)
	copy(code[l.stubOffset():], []byte{
		0x50,       // PUSH RAX
		0x48, 0xb8, // MOV RAX, resume
		0, 0, 0, 0, 0, 0, 0, 0,
		0x48, 0x87, 0x04, 0x24, // XCHG [RSP], RAX
		0xc3, // RET
	})
	binary.LittleEndian.PutUint64(code[l.stubOffset()+stubImmOffset:], uint64(l.resume))
	binary.LittleEndian.PutUint64(code[l.slotOffset():], uint64(l.replacement))
	return code
}

// farJump encodes an indirect jump at from through the pointer at slot.
func farJump(from, slot uintptr) ([]byte, error) {
	disp := int64(slot) - int64(from+jumpSize)
	if disp < math.MinInt32 || disp > math.MaxInt32 {
		return nil, errors.Wrapf(ErrOutOfRange, "%#x to %#x", from, slot)
	}
	return []byte{
		0xff, 0x25, // JMP [RIP+disp32]
		byte(disp), byte(disp >> 8), byte(disp >> 16), byte(disp >> 24),
	}, nil
}

// patchRun pads the jump with nops up to the displaced length.
func patchRun(jump []byte, length int) []byte {
	run := make([]byte, length)
	n := copy(run, jump)
	for i := n; i < length; i++ {
		run[i] = nop
	}
	return run
}

// Trampoline is an installed detour. Its address is the entry point of the
// original behavior, and closing it puts the original bytes back.
type Trampoline struct {
	hooker      *Hooker
	source      uintptr
	replacement uintptr
	buf         uintptr
	original    []byte
}

// Valid reports whether the detour is installed.
func (t *Trampoline) Valid() bool {
	return t != nil && t.buf != 0
}

// Addr returns the callable address of the original function, or zero.
func (t *Trampoline) Addr() uintptr {
	if !t.Valid() {
		return 0
	}
	return t.buf
}

// Source returns the resolved address that was patched.
func (t *Trampoline) Source() uintptr {
	if t == nil {
		return 0
	}
	return t.source
}

// Replacement returns the address calls are redirected to.
func (t *Trampoline) Replacement() uintptr {
	if t == nil {
		return 0
	}
	return t.replacement
}

// Length returns the number of displaced bytes.
func (t *Trampoline) Length() int {
	if t == nil {
		return 0
	}
	return len(t.original)
}

// Close restores the source and releases the trampoline page. Closing a
// released or nil trampoline does nothing.
func (t *Trampoline) Close() error {
	if t == nil {
		return nil
	}
	h := t.hooker
	h.mu.Lock()
	defer h.mu.Unlock()
	if t.buf == 0 {
		return nil
	}

	l := logging.Func(h.log, "Close")
	if err := writeCode(l, t.source, t.original); err != nil {
		l.Errorf("Could not restore %#x: %v", t.source, err)
		return err
	}
	if err := mem.Free(t.buf, trampolineSize); err != nil {
		l.Warnf("Could not free trampoline at %#x: %v", t.buf, err)
	}
	delete(h.hooks, t.source)
	t.buf = 0
	return nil
}
