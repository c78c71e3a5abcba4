// Package disasm measures x86-64 instruction runs and follows jump chains.
// It decodes only as much as the patching engine needs.
package disasm

import (
	"github.com/pkg/errors"
	"golang.org/x/arch/x86/x86asm"
)

// maxInstLen is read past the requested minimum so that the last instruction
// of a run can be decoded in full.
const maxInstLen = 16

var (
	errEmpty      = errors.New("no bytes to decode")
	errPrefixOnly = errors.New("lone prefix byte")
)

// Run describes a sequence of whole instructions.
type Run struct {
	// Length is the sum of the decoded instruction lengths.
	Length int
	// Count is the number of decoded instructions.
	Count int
	// Relocatable reports whether the run can be copied verbatim to another
	// address, i.e. none of its instructions is RIP relative.
	Relocatable bool
}

// Analyze decodes instructions from the start of code until at least minSize
// bytes are covered or decoding fails. The returned length never splits an
// instruction and may be less than minSize if decoding stopped early.
func Analyze(code []byte, minSize int) Run {
	run := Run{Relocatable: true}
	for run.Length < minSize {
		inst, err := decode(code[run.Length:])
		if err != nil {
			break
		}
		run.Relocatable = run.Relocatable && relocatable(inst)
		run.Length += inst.Len
		run.Count++
	}
	return run
}

// MeasureRun is Analyze over the memory at addr. Callers must check that the
// result is at least minSize before trusting it.
func MeasureRun(mem Memory, addr uintptr, minSize int) int {
	return AnalyzeAt(mem, addr, minSize).Length
}

// AnalyzeAt is Analyze over the memory at addr.
func AnalyzeAt(mem Memory, addr uintptr, minSize int) Run {
	return Analyze(mem.Read(addr, minSize+maxInstLen), minSize)
}

func decode(src []byte) (x86asm.Inst, error) {
	if len(src) == 0 {
		return x86asm.Inst{}, errEmpty
	}
	inst, err := x86asm.Decode(src, 64)
	if err != nil {
		return inst, err
	}
	if inst.Opcode == 0 && inst.Len == 1 && inst.Prefix[0] == x86asm.Prefix(src[0]) {
		return inst, errPrefixOnly
	}
	return inst, nil
}

func relocatable(inst x86asm.Inst) bool {
	for _, a := range inst.Args {
		if a == nil {
			break
		}
		switch arg := a.(type) {
		case x86asm.Mem:
			if arg.Base == x86asm.RIP {
				return false
			}
		case x86asm.Rel:
			return false
		}
	}
	return true
}
