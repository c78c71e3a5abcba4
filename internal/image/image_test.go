package image

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sectionName(s string) (name [8]uint8) {
	copy(name[:], s)
	return
}

// fakeImage lays out a mapped PE header with the given sections.
func fakeImage(t *testing.T, sections ...pe.SectionHeader32) []byte {
	t.Helper()
	const lfanew = 0x80

	buf := make([]byte, lfanew)
	binary.LittleEndian.PutUint16(buf, dosSignature)
	binary.LittleEndian.PutUint32(buf[lfanewOffset:], lfanew)

	w := bytes.NewBuffer(buf)
	require.NoError(t, binary.Write(w, binary.LittleEndian, uint32(ntSignature)))
	require.NoError(t, binary.Write(w, binary.LittleEndian, pe.FileHeader{
		Machine:              pe.IMAGE_FILE_MACHINE_AMD64,
		NumberOfSections:     uint16(len(sections)),
		SizeOfOptionalHeader: 0xF0,
	}))
	w.Write(make([]byte, 0xF0))
	require.NoError(t, binary.Write(w, binary.LittleEndian, sections))
	return w.Bytes()
}

func TestReadHeaders(t *testing.T) {
	data := fakeImage(t,
		pe.SectionHeader32{Name: sectionName(".textbss"), VirtualAddress: 0x1000, SizeOfRawData: 0},
		pe.SectionHeader32{Name: sectionName(".text"), VirtualAddress: 0x2000, SizeOfRawData: 0x5400},
		pe.SectionHeader32{Name: sectionName(".rdata"), VirtualAddress: 0x8000, SizeOfRawData: 0x800},
	)

	sections, err := ReadHeaders(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, sections, 3)

	img := &Image{Base: 0x140000000, Sections: sections}
	text, ok := img.Section(".text")
	require.True(t, ok)
	assert.Equal(t, Section{Name: ".text", VirtualAddress: 0x2000, RawSize: 0x5400}, text)

	_, ok = img.Section(".data")
	assert.False(t, ok)
}

func TestReadHeadersBadDOSMagic(t *testing.T) {
	data := fakeImage(t, pe.SectionHeader32{Name: sectionName(".text")})
	data[0] = 'X'

	_, err := ReadHeaders(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrDOSMagic))
}

func TestReadHeadersBadPEMagic(t *testing.T) {
	data := fakeImage(t, pe.SectionHeader32{Name: sectionName(".text")})
	data[0x81] = 'X'

	_, err := ReadHeaders(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrPEMagic))
}

func TestReadHeadersTruncated(t *testing.T) {
	data := fakeImage(t, pe.SectionHeader32{Name: sectionName(".text")})

	_, err := ReadHeaders(bytes.NewReader(data[:len(data)-10]))
	assert.Error(t, err)
}

func TestNameMatch(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{".text", ".text", true},
		{".text", ".textbss", false},
		{".textbss", ".text", false},
		{".text", ".data", false},
		{"", "", true},
		// only eight bytes take part
		{".verylongA", ".verylongB", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, nameMatch(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
	}
}

func TestOpenFileRejectsPE(t *testing.T) {
	data := fakeImage(t, pe.SectionHeader32{Name: sectionName(".text")})

	_, err := openFile(bytes.NewReader(data))
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}
