//go:build linux

package image

import (
	"os"
	"reflect"
	"runtime"

	"github.com/pkg/errors"
)

// Current reads the section table of the running executable. For position
// independent executables Base is the load bias, found by matching a symbol
// of this package against its runtime address.
func Current() (*Image, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, errors.Wrap(err, "locate executable")
	}
	f, err := os.Open(exe)
	if err != nil {
		return nil, errors.Wrap(err, "open executable")
	}
	defer f.Close()

	raw, err := openFile(f)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", exe)
	}
	img := &Image{Sections: raw.Sections()}
	if e, ok := raw.(*elfFile); ok && e.relocated() {
		if img.Base, err = loadBias(raw); err != nil {
			return nil, err
		}
	}
	return img, nil
}

func loadBias(raw rawFile) (uintptr, error) {
	syms, err := raw.Symbols()
	if err != nil {
		return 0, errors.Wrap(err, "read symbols")
	}
	pc := reflect.ValueOf(Current).Pointer()
	name := runtime.FuncForPC(pc).Name()
	link, ok := syms[name]
	if !ok {
		return 0, errors.Errorf("symbol %s not found", name)
	}
	return pc - link, nil
}
