package disasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// push rbp; mov rbp, rsp; sub rsp, 0x20; mov [rbp-8], rdi; mov [rbp-0x10], rsi; ret
var prologue = []byte{
	0x55,
	0x48, 0x89, 0xe5,
	0x48, 0x83, 0xec, 0x20,
	0x48, 0x89, 0x7d, 0xf8,
	0x48, 0x89, 0x75, 0xf0,
	0xc3,
}

var boundaries = []int{0, 1, 4, 8, 12, 16, 17}

func isBoundary(n int) bool {
	for _, b := range boundaries {
		if b == n {
			return true
		}
	}
	return false
}

func TestAnalyzeCoversMinimum(t *testing.T) {
	tests := []struct {
		min    int
		length int
		count  int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 4, 2},
		{4, 4, 2},
		{6, 8, 3},
		{13, 16, 5},
		{16, 16, 5},
		{17, 17, 6},
	}
	for _, tt := range tests {
		run := Analyze(prologue, tt.min)
		assert.Equal(t, tt.length, run.Length, "min %d", tt.min)
		assert.Equal(t, tt.count, run.Count, "min %d", tt.min)
		assert.True(t, run.Relocatable)
	}
}

func TestAnalyzeNeverSplits(t *testing.T) {
	for min := 0; min <= len(prologue); min++ {
		run := Analyze(prologue, min)
		assert.True(t, isBoundary(run.Length), "min %d gave %d", min, run.Length)
		assert.GreaterOrEqual(t, run.Length, min)
	}
}

func TestAnalyzeStopsOnTruncation(t *testing.T) {
	// the sub instruction is cut in half
	run := Analyze(prologue[:6], 16)
	assert.Equal(t, 4, run.Length)
	assert.Equal(t, 2, run.Count)
}

func TestAnalyzeStopsOnInvalid(t *testing.T) {
	code := []byte{0x55, 0x48, 0x89, 0xe5, 0xff, 0xff, 0x90, 0x90}
	run := Analyze(code, 16)
	assert.Equal(t, 4, run.Length)
}

func TestAnalyzeRelocatable(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"lea rip", []byte{0x48, 0x8d, 0x05, 0x10, 0x00, 0x00, 0x00}},
		{"call rel32", []byte{0xe8, 0x00, 0x01, 0x00, 0x00}},
		{"jmp rel8", []byte{0xeb, 0x02}},
		{"jne rel8", []byte{0x75, 0x02}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := append(append([]byte{0x55}, tt.code...), prologue...)
			run := Analyze(code, 8)
			assert.False(t, run.Relocatable)
			assert.GreaterOrEqual(t, run.Length, 8)
		})
	}
}

func TestMeasureRunOverBuffer(t *testing.T) {
	mem := Buffer{Base: 0x40_0000, Data: prologue}
	assert.Equal(t, 16, MeasureRun(mem, 0x40_0000, 16))
	assert.Equal(t, 12, MeasureRun(mem, 0x40_0004, 9))
	assert.Equal(t, 0, MeasureRun(mem, 0x50_0000, 16))
}
