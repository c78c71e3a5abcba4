//go:build linux

package mem

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// lowest address mmap hands out with the default vm.mmap_min_addr
	minAddress = 0x10000
	// end of the 47 bit user address space
	maxAddress = 0x7ffffffff000
)

type mapping struct {
	start, end uintptr
	prot       Prot
}

func parseMaps(r io.Reader) ([]mapping, error) {
	var maps []mapping
	s := bufio.NewScanner(r)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 2 {
			continue
		}
		bounds := strings.SplitN(fields[0], "-", 2)
		if len(bounds) != 2 {
			return nil, errors.Errorf("bad range %q", fields[0])
		}
		start, err := strconv.ParseUint(bounds[0], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad range %q", fields[0])
		}
		end, err := strconv.ParseUint(bounds[1], 16, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad range %q", fields[0])
		}
		maps = append(maps, mapping{start: uintptr(start), end: uintptr(end), prot: parsePerms(fields[1])})
	}
	return maps, s.Err()
}

func parsePerms(perms string) Prot {
	var prot Prot
	for _, c := range perms {
		switch c {
		case 'r':
			prot |= unix.PROT_READ
		case 'w':
			prot |= unix.PROT_WRITE
		case 'x':
			prot |= unix.PROT_EXEC
		}
	}
	return prot
}

// lookup expects maps sorted by address, as the kernel reports them.
func lookup(maps []mapping, addr uintptr) Region {
	if addr < minAddress {
		return Region{Base: 0, Size: minAddress}
	}
	if addr >= maxAddress {
		return Region{Base: maxAddress}
	}
	lo := uintptr(minAddress)
	for _, m := range maps {
		if addr < m.start {
			end := m.start
			if end > maxAddress {
				end = maxAddress
			}
			return Region{Base: lo, Size: end - lo, Free: true}
		}
		if addr < m.end {
			return Region{Base: m.start, Size: m.end - m.start, Prot: m.prot}
		}
		lo = m.end
	}
	return Region{Base: lo, Size: maxAddress - lo, Free: true}
}
