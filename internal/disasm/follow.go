package disasm

import (
	"github.com/apex/log"
	"golang.org/x/arch/x86/x86asm"

	"github.com/k2io/wrench/internal/logging"
)

// DefaultMaxHops bounds jump chains so a jump to itself cannot hang the caller.
const DefaultMaxHops = 64

// Resolver follows chains of unconditional relative jumps to the real entry
// point of a function.
type Resolver struct {
	Mem     Memory
	Log     log.Interface
	MaxHops int
}

// NewResolver returns a Resolver over mem.
func NewResolver(mem Memory, l log.Interface) *Resolver {
	return &Resolver{Mem: mem, Log: l, MaxHops: DefaultMaxHops}
}

// Canonicalize returns the address of the first instruction at the end of the
// jump chain starting at addr. Decode anomalies are logged and the last
// resolved address is returned.
func (r *Resolver) Canonicalize(addr uintptr) uintptr {
	addr, _ = r.Follow(addr)
	return addr
}

// Follow is Canonicalize that also reports how many jumps were taken.
func (r *Resolver) Follow(addr uintptr) (uintptr, int) {
	l := logging.Func(r.Log, "Canonicalize")
	hops := 0
	for {
		inst, err := decode(r.Mem.Read(addr, maxInstLen))
		if err != nil {
			l.Errorf("Could not disassemble instruction at %#x: %v", addr, err)
			return addr, hops
		}
		if inst.Op != x86asm.JMP {
			return addr, hops
		}
		rel, ok := inst.Args[0].(x86asm.Rel)
		if !ok {
			l.Errorf("Invalid operand for jump at %#x: %v", addr, inst.Args[0])
			return addr, hops
		}
		if r.MaxHops > 0 && hops >= r.MaxHops {
			l.Errorf("Jump chain at %#x longer than %d hops", addr, r.MaxHops)
			return addr, hops
		}
		addr += uintptr(inst.Len) + uintptr(int64(rel))
		hops++
	}
}
