package image

import (
	"debug/elf"
	"io"
)

type elfFile struct {
	elf *elf.File
}

func openElf(r io.ReaderAt) (rawFile, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, err
	}
	return &elfFile{f}, nil
}

func (e *elfFile) Sections() []Section {
	var sections []Section
	for _, s := range e.elf.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		sections = append(sections, Section{Name: s.Name, VirtualAddress: s.Addr, RawSize: s.Size})
	}
	return sections
}

func (e *elfFile) Symbols() (map[string]uintptr, error) {
	elfSyms, err := e.elf.Symbols()
	if err != nil {
		return nil, err
	}
	return getElfOff(elfSyms), nil
}

// relocated reports whether the image is position independent and so loaded
// at a bias from its link addresses.
func (e *elfFile) relocated() bool {
	return e.elf.Type == elf.ET_DYN
}

func getElfOff(stab []elf.Symbol) map[string]uintptr {
	elfOff := make(map[string]uintptr, len(stab))
	for _, k := range stab {
		elfOff[k.Name] = uintptr(k.Value)
	}
	return elfOff
}
