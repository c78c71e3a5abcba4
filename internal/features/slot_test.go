package features

import (
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTable struct {
	slots []uintptr
	// value a concurrent patcher stores between Slot and Hook
	raced uintptr
	err   error
}

func (f *fakeTable) Slot(i int) uintptr { return f.slots[i] }

func (f *fakeTable) Hook(i int, replacement uintptr) (uintptr, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.raced != 0 {
		f.slots[i] = f.raced
	}
	prev := f.slots[i]
	f.slots[i] = replacement
	return prev, nil
}

func TestHookSlotKeepsExchangedValue(t *testing.T) {
	table := &fakeTable{slots: []uintptr{0x10, 0x20}, raced: 0x30}
	var seen *atomic.Uintptr

	err := hookSlot(table, 1, func(original *atomic.Uintptr) uintptr {
		seen = original
		assert.Equal(t, uintptr(0x20), original.Load())
		return 0x99
	})
	require.NoError(t, err)
	assert.Equal(t, uintptr(0x99), table.slots[1])
	assert.Equal(t, uintptr(0x30), seen.Load())
}

func TestHookSlotFailure(t *testing.T) {
	table := &fakeTable{slots: []uintptr{0x10}, err: errors.New("protect")}

	err := hookSlot(table, 0, func(*atomic.Uintptr) uintptr { return 0x99 })
	assert.Error(t, err)
	assert.Equal(t, uintptr(0x10), table.slots[0])
}
