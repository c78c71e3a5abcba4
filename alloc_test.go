//go:build amd64 && (linux || windows)

package wrench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k2io/wrench/internal/mem"
)

func TestCandidate(t *testing.T) {
	const gran = 0x10000
	tests := []struct {
		name   string
		region mem.Region
		floor  uintptr
		want   uintptr
		ok     bool
	}{
		{"closest aligned", mem.Region{Base: 0x10000000, Size: 0x20000, Free: true}, 0, 0x10010000, true},
		{"exact fit", mem.Region{Base: 0x10000000, Size: 0x1000, Free: true}, 0, 0x10000000, true},
		{"smaller than block", mem.Region{Base: 0x10000000, Size: 0x800, Free: true}, 0, 0, false},
		{"no aligned spot", mem.Region{Base: 0x10001000, Size: 0x2000, Free: true}, 0, 0, false},
		{"at floor", mem.Region{Base: 0x10000000, Size: 0x1000, Free: true}, 0x10000000, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := candidate(tt.region, 0x1000, gran, tt.floor)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, p)
		})
	}
}

func TestAllocNear(t *testing.T) {
	src := newFixture(t, addCode)[0]

	buf, err := allocNear(src, trampolineSize)
	require.NoError(t, err)
	defer mem.Free(buf, trampolineSize)

	assert.True(t, buf < src, "%#x not below %#x", buf, src)
	assert.True(t, src-buf < searchRange, "%#x too far below %#x", buf, src)
	assert.Zero(t, buf%mem.AllocationGranularity())

	r, err := mem.Query(buf)
	require.NoError(t, err)
	assert.False(t, r.Free)
}

func TestAllocNearSkipsTakenPages(t *testing.T) {
	src := newFixture(t, addCode)[0]

	first, err := allocNear(src, trampolineSize)
	require.NoError(t, err)
	defer mem.Free(first, trampolineSize)
	second, err := allocNear(src, trampolineSize)
	require.NoError(t, err)
	defer mem.Free(second, trampolineSize)

	assert.NotEqual(t, first, second)
	assert.True(t, second < src && src-second < searchRange, "%#x out of range of %#x", second, src)
}
