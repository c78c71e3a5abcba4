package wrench

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/mem"
)

// Pattern is a byte signature with wildcard positions.
type Pattern struct {
	data []byte
	// significant positions
	mask []bool
}

// NewPattern pairs data with a mask in which 'x' marks a byte that must
// match and any other character a wildcard.
func NewPattern(data []byte, mask string) (Pattern, error) {
	if len(data) == 0 || len(data) != len(mask) {
		return Pattern{}, errors.Wrapf(ErrInvalidPattern, "%d bytes, %d mask", len(data), len(mask))
	}
	p := Pattern{data: append([]byte(nil), data...), mask: make([]bool, len(mask))}
	for i := range mask {
		p.mask[i] = mask[i] == 'x'
	}
	return p, nil
}

// ParsePattern reads a signature such as "48 83 EC 20 ?? 8D", where ? or ??
// stands for any byte.
func ParsePattern(sig string) (Pattern, error) {
	fields := strings.Fields(sig)
	data := make([]byte, len(fields))
	mask := make([]byte, len(fields))
	for i, f := range fields {
		if f == "?" || f == "??" {
			mask[i] = '?'
			continue
		}
		b, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return Pattern{}, errors.Wrapf(ErrInvalidPattern, "byte %d %q", i, f)
		}
		data[i], mask[i] = byte(b), 'x'
	}
	return NewPattern(data, string(mask))
}

// Len returns the number of bytes the pattern spans.
func (p Pattern) Len() int {
	return len(p.data)
}

// Match reports whether window starts with the pattern.
func (p Pattern) Match(window []byte) bool {
	if len(window) < len(p.data) {
		return false
	}
	for i, b := range p.data {
		if p.mask[i] && window[i] != b {
			return false
		}
	}
	return true
}

// Find returns the offset of the first match in data, or -1.
func (p Pattern) Find(data []byte) int {
	if p.Len() == 0 {
		return -1
	}
	for i := 0; i+p.Len() <= len(data); i++ {
		if p.Match(data[i:]) {
			return i
		}
	}
	return -1
}

// FindPattern scans live memory in [start, end) for p. Matches must lie
// entirely inside the range.
func FindPattern(start, end uintptr, p Pattern) (uintptr, bool) {
	if end <= start || end-start < uintptr(p.Len()) {
		return 0, false
	}
	i := p.Find(mem.Bytes(start, int(end-start)))
	if i < 0 {
		return 0, false
	}
	return start + uintptr(i), true
}
