//go:build amd64 && (linux || windows)

package wrench

import (
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/image"
	"github.com/k2io/wrench/internal/logging"
)

// Section is a section of the running executable, located in memory.
type Section struct {
	Name           string
	Start          uintptr
	VirtualAddress uint64
	RawSize        uint64
}

// End returns the first address past the section's raw data.
func (s Section) End() uintptr {
	return s.Start + uintptr(s.RawSize)
}

// Contains reports whether addr lies in the section.
func (s Section) Contains(addr uintptr) bool {
	return addr >= s.Start && addr < s.End()
}

// Image returns the image of the running executable, read once.
func (h *Hooker) Image() (*image.Image, error) {
	h.imageOnce.Do(func() {
		h.image, h.imageErr = image.Current()
	})
	return h.image, h.imageErr
}

// FindSection locates a section by name, compared over at most eight bytes.
func (h *Hooker) FindSection(name string) (Section, bool) {
	l := logging.Func(h.log, "FindSection")
	img, err := h.Image()
	if err != nil {
		l.Errorf("Could not read image headers: %v", err)
		return Section{}, false
	}
	s, ok := img.Section(name)
	if !ok {
		l.Errorf("Section %s not found", name)
		return Section{}, false
	}
	return Section{
		Name:           s.Name,
		Start:          img.Base + uintptr(s.VirtualAddress),
		VirtualAddress: s.VirtualAddress,
		RawSize:        s.RawSize,
	}, true
}

// Scan finds p inside the named section.
func (h *Hooker) Scan(section string, p Pattern) (uintptr, error) {
	s, ok := h.FindSection(section)
	if !ok {
		return 0, errors.Errorf("section %s not found", section)
	}
	addr, ok := FindPattern(s.Start, s.End(), p)
	if !ok {
		logging.Func(h.log, "Scan").Errorf("Pattern not found in %s", section)
		return 0, errors.Errorf("pattern not found in %s", section)
	}
	return addr, nil
}
