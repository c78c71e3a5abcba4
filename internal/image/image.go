// Package image locates the sections of the executable image loaded in the
// current process.
package image

import (
	"io"

	"github.com/pkg/errors"
)

var (
	// ErrDOSMagic means the image does not start with an MZ header.
	ErrDOSMagic = errors.New("invalid DOS magic")
	// ErrPEMagic means the NT headers do not carry the PE signature.
	ErrPEMagic = errors.New("invalid PE magic")
	// ErrUnknownFormat means no reader recognized the object file.
	ErrUnknownFormat = errors.New("unrecognized object file")
)

// nameLen is the fixed width of a PE section name.
const nameLen = 8

// Section is one entry of the section table.
type Section struct {
	Name string
	// VirtualAddress is relative to the image base.
	VirtualAddress uint64
	RawSize        uint64
}

// Image is a loaded image: where it sits and what it contains.
type Image struct {
	Base     uintptr
	Sections []Section
}

// Section returns the first section whose name matches. Names are compared
// over at most eight bytes, stopping at the first NUL.
func (img *Image) Section(name string) (Section, bool) {
	for _, s := range img.Sections {
		if nameMatch(name, s.Name) {
			return s, true
		}
	}
	return Section{}, false
}

func nameMatch(a, b string) bool {
	for i := 0; i < nameLen; i++ {
		ca, cb := byteAt(a, i), byteAt(b, i)
		if ca != cb {
			return false
		}
		if ca == 0 {
			return true
		}
	}
	return true
}

func byteAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return 0
}

type rawFile interface {
	Sections() []Section
	Symbols() (map[string]uintptr, error)
}

var objType = []func(io.ReaderAt) (rawFile, error){
	openElf,
}

func openFile(r io.ReaderAt) (rawFile, error) {
	for _, try := range objType {
		if raw, err := try(r); err == nil {
			return raw, nil
		}
	}
	return nil, ErrUnknownFormat
}
