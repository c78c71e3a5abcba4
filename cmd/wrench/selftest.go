//go:build amd64 && (linux || windows)

package main

import (
	"fmt"
	"io"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/k2io/wrench"
	"github.com/k2io/wrench/internal/mem"
)

type addFunc = func(a, b int) int

// addCode is Add(a, b int) int for the Go internal ABI.
var addCode = []byte{
	0x48, 0x89, 0xc1, // MOV RCX, RAX
	0x48, 0x01, 0xd9, // ADD RCX, RBX
	0x48, 0x89, 0xc8, // MOV RAX, RCX
	0x0f, 0x1f, 0x44, 0x00, 0x00, // NOP
	0x66, 0x90, // NOP
	0xc3, // RET
}

var addOriginal addFunc

//go:noinline
func addDetour(a, b int) int {
	return addOriginal(a, b) * 2
}

// selfTest detours a freshly assembled Add and prints Add(2, 3) through the
// detour.
func selfTest(l log.Interface, w io.Writer) error {
	size := mem.PageSize()
	code, err := mem.Alloc(0, size, mem.ReadWriteExecute)
	if err != nil {
		return errors.Wrap(err, "allocate test code")
	}
	defer mem.Free(code, size)
	copy(mem.Bytes(code, len(addCode)), addCode)
	add := wrench.MakeFunc[addFunc](code)

	h := wrench.New(wrench.WithLogger(l))
	defer h.Close()

	tramp, err := h.Detour(code, wrench.FuncAddr(addDetour))
	if err != nil {
		return errors.Wrap(err, "detour test code")
	}
	addOriginal = wrench.MakeFunc[addFunc](tramp.Addr())

	fmt.Fprintf(w, "Add(2, 3) = %d\n", add(2, 3))
	return tramp.Close()
}
