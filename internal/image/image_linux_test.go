//go:build linux

package image

import (
	"debug/elf"
	"reflect"
	"runtime"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentContainsOwnCode(t *testing.T) {
	img, err := Current()
	require.NoError(t, err)

	text, ok := img.Section(".text")
	require.True(t, ok)

	pc := reflect.ValueOf(TestCurrentContainsOwnCode).Pointer()
	start := img.Base + uintptr(text.VirtualAddress)
	assert.True(t, pc >= start && pc < start+uintptr(text.RawSize), "%#x outside .text at %#x", pc, start)
}

type symbolTable struct {
	syms map[string]uintptr
	err  error
}

func (s symbolTable) Sections() []Section                   { return nil }
func (s symbolTable) Symbols() (map[string]uintptr, error) { return s.syms, s.err }

func TestLoadBias(t *testing.T) {
	pc := reflect.ValueOf(Current).Pointer()
	name := runtime.FuncForPC(pc).Name()

	bias, err := loadBias(symbolTable{syms: map[string]uintptr{name: pc - 0x5000}})
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x5000), bias)

	_, err = loadBias(symbolTable{syms: map[string]uintptr{"main.main": 0x1000}})
	assert.Error(t, err)

	_, err = loadBias(symbolTable{err: errors.New("no symbols")})
	assert.Error(t, err)
}

func TestRelocated(t *testing.T) {
	pie := &elfFile{elf: &elf.File{FileHeader: elf.FileHeader{Type: elf.ET_DYN}}}
	exec := &elfFile{elf: &elf.File{FileHeader: elf.FileHeader{Type: elf.ET_EXEC}}}
	assert.True(t, pie.relocated())
	assert.False(t, exec.relocated())
}

func TestGetElfOff(t *testing.T) {
	off := getElfOff([]elf.Symbol{
		{Name: "main.main", Value: 0x401000},
		{Name: "runtime.main", Value: 0x402000},
	})
	assert.Equal(t, map[string]uintptr{"main.main": 0x401000, "runtime.main": 0x402000}, off)
}
