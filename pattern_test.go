package wrench

import (
	"testing"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var movieCtor = []byte{
	0x48, 0x83, 0xec, 0x20, // sub rsp, 20h
	0x33, 0xed, // xor ebp, ebp
	0x48, 0x8d, 0x05, 0x11, 0x22, 0x33, 0x44, // lea rax, [rip+?]
	0x4c, 0x8d, 0x35, 0x55, 0x66, 0x77, 0x08, // lea r14, [rip+?]
}

func TestPatternFind(t *testing.T) {
	p, err := NewPattern([]byte{0x48, 0x8d, 0x05, 0, 0, 0, 0, 0x4c, 0x8d, 0x35}, "xxx????xxx")
	require.NoError(t, err)

	data := append([]byte{0xcc, 0xcc, 0x48, 0x8d}, movieCtor...)
	assert.Equal(t, 4+6, p.Find(data))
}

func TestPatternWildcardsOnly(t *testing.T) {
	p, err := NewPattern([]byte{1, 2, 3}, "???")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Find(movieCtor))
	assert.Equal(t, -1, p.Find([]byte{1, 2}))
}

func TestPatternNotFound(t *testing.T) {
	p, err := ParsePattern("48 83 EC 28")
	require.NoError(t, err)
	assert.Equal(t, -1, p.Find(movieCtor))
	assert.False(t, p.Match(movieCtor[:2]))
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("48 83 ?? 20 ? ed")
	require.NoError(t, err)
	assert.Equal(t, 6, p.Len())
	assert.Equal(t, 0, p.Find(movieCtor))
	assert.Equal(t, []bool{true, true, false, true, false, true}, p.mask)

	_, err = ParsePattern("48 zz")
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	_, err = ParsePattern("")
	assert.True(t, errors.Is(err, ErrInvalidPattern))
	_, err = ParsePattern("100")
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestNewPatternMismatch(t *testing.T) {
	_, err := NewPattern([]byte{1, 2}, "x")
	assert.True(t, errors.Is(err, ErrInvalidPattern))
}

func TestFindPattern(t *testing.T) {
	data := append(make([]byte, 32), movieCtor...)
	start := uintptr(unsafe.Pointer(&data[0]))
	end := start + uintptr(len(data))

	p, err := ParsePattern("48 8D 05 ?? ?? ?? ?? 4C 8D 35")
	require.NoError(t, err)

	addr, ok := FindPattern(start, end, p)
	require.True(t, ok)
	assert.Equal(t, start+32+6, addr)

	// a match crossing end is not reported
	_, ok = FindPattern(start, start+32+6+5, p)
	assert.False(t, ok)
	_, ok = FindPattern(end, start, p)
	assert.False(t, ok)
}
