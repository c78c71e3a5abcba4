package disasm

import (
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const base = 0x1000

func newSpace(size int) []byte {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xcc
	}
	return data
}

func put(data []byte, addr uintptr, code ...byte) {
	copy(data[addr-base:], code)
}

func newResolver(data []byte) (*Resolver, *memory.Handler) {
	h := memory.New()
	return NewResolver(Buffer{Base: base, Data: data}, &log.Logger{Handler: h, Level: log.DebugLevel}), h
}

func TestFollowChain(t *testing.T) {
	data := newSpace(0x300)
	put(data, 0x1000, 0xe9, 0xfb, 0x01, 0x00, 0x00) // jmp 0x1200
	put(data, 0x1200, 0xe9, 0xfb, 0xfe, 0xff, 0xff) // jmp 0x1100
	put(data, 0x1100, 0xeb, 0x7e)                   // jmp 0x1180
	put(data, 0x1180, prologue...)

	r, logs := newResolver(data)
	addr, hops := r.Follow(0x1000)

	assert.Equal(t, uintptr(0x1180), addr)
	assert.Equal(t, 3, hops)
	assert.Empty(t, logs.Entries)
	assert.Equal(t, uintptr(0x1180), r.Canonicalize(0x1000))
}

func TestFollowNoJump(t *testing.T) {
	data := newSpace(0x100)
	put(data, 0x1000, prologue...)

	r, _ := newResolver(data)
	addr, hops := r.Follow(0x1000)

	assert.Equal(t, uintptr(0x1000), addr)
	assert.Equal(t, 0, hops)
}

func TestFollowIndirectJump(t *testing.T) {
	data := newSpace(0x100)
	put(data, 0x1000, 0xeb, 0x0e)                         // jmp 0x1010
	put(data, 0x1010, 0xff, 0x25, 0x00, 0x00, 0x00, 0x00) // jmp [rip]

	r, logs := newResolver(data)
	addr, hops := r.Follow(0x1000)

	assert.Equal(t, uintptr(0x1010), addr)
	assert.Equal(t, 1, hops)
	require.Len(t, logs.Entries, 1)
	assert.Equal(t, log.ErrorLevel, logs.Entries[0].Level)
	assert.Contains(t, logs.Entries[0].Message, "Invalid operand")
	assert.Equal(t, "Canonicalize", logs.Entries[0].Fields["func"])
}

func TestFollowUndecodable(t *testing.T) {
	data := newSpace(0x100)
	put(data, 0x1000, 0xff, 0xff)

	r, logs := newResolver(data)
	addr, _ := r.Follow(0x1000)

	assert.Equal(t, uintptr(0x1000), addr)
	require.Len(t, logs.Entries, 1)
	assert.Contains(t, logs.Entries[0].Message, "Could not disassemble")
}

func TestFollowSelfLoop(t *testing.T) {
	data := newSpace(0x100)
	put(data, 0x1000, 0xeb, 0xfe) // jmp $

	r, logs := newResolver(data)
	r.MaxHops = 8
	addr, hops := r.Follow(0x1000)

	assert.Equal(t, uintptr(0x1000), addr)
	assert.Equal(t, 8, hops)
	require.Len(t, logs.Entries, 1)
}
