//go:build amd64 && (linux || windows)

package wrench

import (
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/require"

	"github.com/k2io/wrench/internal/mem"
)

// Functions below are assembled for the Go internal ABI on amd64: the first
// two integer arguments arrive in RAX and RBX, the result leaves in RAX.
// Each has exactly 16 bytes before its RET.
var (
	addCode = []byte{
		0x48, 0x89, 0xc1, // MOV RCX, RAX
		0x48, 0x01, 0xd9, // ADD RCX, RBX
		0x48, 0x89, 0xc8, // MOV RAX, RCX
		0x0f, 0x1f, 0x44, 0x00, 0x00, // NOP
		0x66, 0x90, // NOP
		0xc3, // RET
	}
	subCode = []byte{
		0x48, 0x89, 0xc1, // MOV RCX, RAX
		0x48, 0x29, 0xd9, // SUB RCX, RBX
		0x48, 0x89, 0xc8, // MOV RAX, RCX
		0x0f, 0x1f, 0x44, 0x00, 0x00, // NOP
		0x66, 0x90, // NOP
		0xc3, // RET
	}
	// ten bytes of code, then garbage
	tinyCode = []byte{
		0x48, 0x89, 0xc1, // MOV RCX, RAX
		0x48, 0x01, 0xd9, // ADD RCX, RBX
		0x48, 0x89, 0xc8, // MOV RAX, RCX
		0xc3,       // RET
		0xff, 0xff, // invalid
	}
	leaCode = []byte{
		0x48, 0x8d, 0x05, 0x00, 0x00, 0x00, 0x00, // LEA RAX, [RIP]
		0x0f, 0x1f, 0x44, 0x00, 0x00, // NOP
		0x0f, 0x1f, 0x44, 0x00, 0x00, // NOP
		0xc3, // RET
	}
)

type binop = func(a, b int) int

// fixtureStride separates functions placed in a fixture page.
const fixtureStride = 0x100

// newFixture copies each code blob into its own slot of a fresh executable
// page and returns their addresses.
func newFixture(t *testing.T, funcs ...[]byte) []uintptr {
	t.Helper()
	size := mem.PageSize()
	base, err := mem.Alloc(0, size, mem.ReadWriteExecute)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = mem.Free(base, size)
	})

	addrs := make([]uintptr, len(funcs))
	for i, code := range funcs {
		addrs[i] = base + uintptr(i)*fixtureStride
		copy(mem.Bytes(addrs[i], len(code)), code)
	}
	return addrs
}

// jmpTo encodes a JMP rel32 placed at from.
func jmpTo(from, to uintptr) []byte {
	rel := int32(int64(to) - int64(from+5))
	return []byte{0xe9, byte(rel), byte(rel >> 8), byte(rel >> 16), byte(rel >> 24)}
}

func snapshot(addr uintptr, n int) []byte {
	return append([]byte(nil), mem.Bytes(addr, n)...)
}

func newTestHooker(t *testing.T, opts ...Option) (*Hooker, *memory.Handler) {
	t.Helper()
	handler := memory.New()
	opts = append([]Option{WithLogger(&log.Logger{Handler: handler, Level: log.DebugLevel})}, opts...)
	h := New(opts...)
	t.Cleanup(func() {
		_ = h.Close()
	})
	return h, handler
}
