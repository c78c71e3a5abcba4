package image

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	dosSignature = 0x5A4D     // MZ
	ntSignature  = 0x00004550 // PE\0\0
	lfanewOffset = 0x3C
)

// ReadHeaders walks the headers of a PE image as laid out in memory,
// r being positioned at the image base.
func ReadHeaders(r io.ReaderAt) ([]Section, error) {
	var dos [lfanewOffset + 4]byte
	if _, err := r.ReadAt(dos[:], 0); err != nil {
		return nil, errors.Wrap(err, "read DOS header")
	}
	if magic := binary.LittleEndian.Uint16(dos[:]); magic != dosSignature {
		return nil, errors.Wrapf(ErrDOSMagic, "%#x", magic)
	}
	lfanew := int64(int32(binary.LittleEndian.Uint32(dos[lfanewOffset:])))

	var nt [4 + 20]byte
	if _, err := r.ReadAt(nt[:], lfanew); err != nil {
		return nil, errors.Wrap(err, "read NT headers")
	}
	if magic := binary.LittleEndian.Uint32(nt[:]); magic != ntSignature {
		return nil, errors.Wrapf(ErrPEMagic, "%#x", magic)
	}
	var fh pe.FileHeader
	if err := binary.Read(bytes.NewReader(nt[4:]), binary.LittleEndian, &fh); err != nil {
		return nil, errors.Wrap(err, "read file header")
	}

	first := lfanew + int64(len(nt)) + int64(fh.SizeOfOptionalHeader)
	table := make([]byte, int(fh.NumberOfSections)*binary.Size(pe.SectionHeader32{}))
	if _, err := r.ReadAt(table, first); err != nil {
		return nil, errors.Wrap(err, "read section table")
	}
	headers := make([]pe.SectionHeader32, fh.NumberOfSections)
	if err := binary.Read(bytes.NewReader(table), binary.LittleEndian, headers); err != nil {
		return nil, errors.Wrap(err, "read section table")
	}

	sections := make([]Section, 0, len(headers))
	for _, h := range headers {
		sections = append(sections, Section{
			Name:           string(bytes.TrimRight(h.Name[:], "\x00")),
			VirtualAddress: uint64(h.VirtualAddress),
			RawSize:        uint64(h.SizeOfRawData),
		})
	}
	return sections, nil
}
