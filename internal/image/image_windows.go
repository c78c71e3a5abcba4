//go:build windows

package image

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/k2io/wrench/internal/mem"
)

// Current reads the section table of the process executable from its
// mapped headers.
func Current() (*Image, error) {
	var h windows.Handle
	if err := windows.GetModuleHandleEx(0, nil, &h); err != nil {
		return nil, errors.Wrap(err, "GetModuleHandleEx")
	}
	base := uintptr(h)
	sections, err := ReadHeaders(liveReader(base))
	if err != nil {
		return nil, err
	}
	return &Image{Base: base, Sections: sections}, nil
}

// liveReader reads the mapped image starting at its base.
type liveReader uintptr

func (r liveReader) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, mem.Bytes(uintptr(r)+uintptr(off), len(p))), nil
}
