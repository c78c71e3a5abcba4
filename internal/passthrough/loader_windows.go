//go:build windows && amd64

package passthrough

import (
	"github.com/apex/log"
	"golang.org/x/sys/windows"

	"github.com/k2io/wrench"
	"github.com/k2io/wrench/internal/config"
)

// SystemLoader loads libraries with LoadLibrary.
var SystemLoader Loader = systemLoader{}

type systemLoader struct{}

func (systemLoader) Load(path string) (Module, error) {
	h, err := windows.LoadLibrary(path)
	if err != nil {
		return nil, err
	}
	return module(h), nil
}

type module windows.Handle

func (m module) Proc(name string) (uintptr, error) {
	return windows.GetProcAddress(windows.Handle(m), name)
}

func (m module) Ordinal(n uint16) (uintptr, error) {
	return windows.GetProcAddressByOrdinal(windows.Handle(m), uintptr(n))
}

// NewSystemXInput returns the forwarder to the system XInput.
func NewSystemXInput(cfg *config.Config, l log.Interface) *XInput {
	return NewXInput(cfg, SystemLoader, wrench.CallNative, l)
}
