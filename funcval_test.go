package wrench

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

//go:noinline
func goAdd(a, b int) int {
	return a + b
}

func TestMakeFunc(t *testing.T) {
	add := MakeFunc[func(int, int) int](FuncAddr(goAdd))
	assert.Equal(t, 5, add(2, 3))
	assert.Equal(t, FuncAddr(goAdd), FuncAddr(add))
}

func TestMakeFuncPanics(t *testing.T) {
	assert.Panics(t, func() {
		MakeFunc[int](0)
	})
	assert.Panics(t, func() {
		FuncAddr(42)
	})
}
