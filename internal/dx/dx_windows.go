//go:build windows && amd64

package dx

import (
	"sync"
	"unsafe"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/k2io/wrench"
	"github.com/k2io/wrench/internal/events"
	"github.com/k2io/wrench/internal/logging"
)

// vtable slots of ID3D11DeviceContext and IDXGISwapChain
const (
	slotVSSetConstantBuffers = 7
	slotMap                  = 14
	slotUnmap                = 15
	slotGetDesc              = 12
	slotResizeBuffers        = 13
)

type modeDesc struct {
	Width            uint32
	Height           uint32
	RefreshRate      [2]uint32
	Format           uint32
	ScanlineOrdering uint32
	Scaling          uint32
}

// swapChainDesc mirrors DXGI_SWAP_CHAIN_DESC.
type swapChainDesc struct {
	BufferDesc   modeDesc
	SampleDesc   [2]uint32
	BufferUsage  uint32
	BufferCount  uint32
	OutputWindow uintptr
	Windowed     int32
	SwapEffect   uint32
	Flags        uint32
}

func failed(hr uintptr) bool {
	return int32(hr) < 0
}

// Device owns the detours on the Direct3D entry points.
type Device struct {
	hooker *wrench.Hooker
	hub    *events.Hub
	log    log.Interface

	create *wrench.Trampoline

	mu             sync.Mutex
	contextTable   *wrench.VTable
	swapChainTable *wrench.VTable
	mapOrig        uintptr
	unmapOrig      uintptr
	resizeOrig     uintptr
	setBuffersOrig uintptr
}

// Init detours D3D11CreateDeviceAndSwapChain of the loaded d3d11.dll.
// Subscribers must be registered with hub before the game creates its device.
func Init(h *wrench.Hooker, hub *events.Hub, l log.Interface) (*Device, error) {
	e := logging.Func(l, "Init")
	var mod windows.Handle
	if err := windows.GetModuleHandleEx(0, windows.StringToUTF16Ptr("d3d11"), &mod); err != nil {
		e.Errorf("No d3d available.")
		return nil, errors.Wrap(err, "d3d11")
	}
	proc, err := windows.GetProcAddress(mod, "D3D11CreateDeviceAndSwapChain")
	if err != nil {
		e.Errorf("Could not find `D3D11CreateDeviceAndSwapChain'")
		return nil, errors.Wrap(err, "D3D11CreateDeviceAndSwapChain")
	}

	d := &Device{hooker: h, hub: hub, log: l}
	d.create, err = h.Detour(proc, wrench.Callback(d.createDeviceAndSwapChain))
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Close removes every detour.
func (d *Device) Close() error {
	d.mu.Lock()
	tables := []*wrench.VTable{d.contextTable, d.swapChainTable}
	d.mu.Unlock()
	for _, t := range tables {
		if err := t.Close(); err != nil {
			return err
		}
	}
	return d.create.Close()
}

func (d *Device) createDeviceAndSwapChain(adapter, driverType, software, flags, featureLevels, numFeatureLevels,
	sdkVersion, desc, ppSwapChain, ppDevice, pFeatureLevel, ppContext uintptr) uintptr {
	l := logging.Func(d.log, "CreateDeviceAndSwapChain")

	out := new([3]uintptr) // swap chain, device, context
	hr := wrench.CallNative(d.create.Addr(), adapter, driverType, software, flags, featureLevels, numFeatureLevels,
		sdkVersion, desc, uintptr(unsafe.Pointer(&out[0])), uintptr(unsafe.Pointer(&out[1])), pFeatureLevel,
		uintptr(unsafe.Pointer(&out[2])))
	if failed(hr) {
		l.Errorf("Failed to create D3D device: %#x", uint32(hr))
		return hr
	}
	swapChain, device, context := out[0], out[1], out[2]

	d.hookContext(l, context)
	d.hookSwapChain(l, swapChain)

	var width, height uint32
	if desc != 0 {
		scd := (*swapChainDesc)(unsafe.Pointer(desc))
		width, height = scd.BufferDesc.Width, scd.BufferDesc.Height
	} else {
		l.Errorf("Can't determine initial buffer sizes, no swap chain desc passed")
	}
	d.hub.DeviceCreated(context, device, swapChain)
	d.hub.ViewportResized(width, height)

	forward(ppSwapChain, swapChain)
	forward(ppDevice, device)
	forward(ppContext, context)
	return hr
}

// forward hands an interface to the caller, or releases it if unwanted.
func forward(pp, object uintptr) {
	if object == 0 {
		return
	}
	if pp != 0 {
		*(*uintptr)(unsafe.Pointer(pp)) = object
		return
	}
	wrench.NativeMethod{Index: 2}.Call(wrench.ObjectTable(object), object)
}

func (d *Device) hookContext(l *log.Entry, context uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.contextTable != nil {
		return
	}
	if context == 0 {
		l.Errorf("No device context")
		return
	}
	d.contextTable = wrench.NewVTable(d.hooker, wrench.ObjectTable(context))

	needs := d.hub.Needs()
	if needs.Map {
		d.mapOrig = d.detour(l, d.contextTable, slotMap, d.contextMap)
	}
	if needs.Unmap {
		d.unmapOrig = d.detour(l, d.contextTable, slotUnmap, d.contextUnmap)
	}
	if needs.ConstantBuffers {
		d.setBuffersOrig = d.detour(l, d.contextTable, slotVSSetConstantBuffers, d.vsSetConstantBuffers)
	}
}

func (d *Device) hookSwapChain(l *log.Entry, swapChain uintptr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.swapChainTable != nil {
		return
	}
	if swapChain == 0 {
		l.Errorf("No swap chain")
		return
	}
	d.swapChainTable = wrench.NewVTable(d.hooker, wrench.ObjectTable(swapChain))

	if d.hub.Needs().Resize {
		d.resizeOrig = d.detour(l, d.swapChainTable, slotResizeBuffers, d.resizeBuffers)
	}
}

func (d *Device) detour(l *log.Entry, table *wrench.VTable, slot int, fn any) uintptr {
	t, err := table.Detour(slot, wrench.Callback(fn))
	if err != nil {
		l.Errorf("Could not detour slot %d: %v", slot, err)
		return 0
	}
	return t.Addr()
}

func (d *Device) contextMap(context, resource, subresource, mapType, mapFlags, mapped uintptr) uintptr {
	hr := wrench.CallNative(d.mapOrig, context, resource, subresource, mapType, mapFlags, mapped)
	if !failed(hr) {
		d.hub.ResourceMapped(context, resource, (*events.MappedSubresource)(unsafe.Pointer(mapped)))
	}
	return hr
}

func (d *Device) contextUnmap(context, resource, subresource uintptr) uintptr {
	d.hub.ResourceUnmapping(context, resource)
	return wrench.CallNative(d.unmapOrig, context, resource, subresource)
}

func (d *Device) vsSetConstantBuffers(context, startSlot, numBuffers, buffers uintptr) uintptr {
	r := wrench.CallNative(d.setBuffersOrig, context, startSlot, numBuffers, buffers)
	d.hub.ConstantBuffersSet(context, uint32(startSlot), uint32(numBuffers), buffers)
	return r
}

func (d *Device) resizeBuffers(swapChain, bufferCount, width, height, format, flags uintptr) uintptr {
	hr := wrench.CallNative(d.resizeOrig, swapChain, bufferCount, width, height, format, flags)
	if failed(hr) {
		return hr
	}
	w, h := uint32(width), uint32(height)
	if w == 0 || h == 0 {
		desc := new(swapChainDesc)
		r := wrench.NativeMethod{Index: slotGetDesc}.Call(wrench.ObjectTable(swapChain), swapChain,
			uintptr(unsafe.Pointer(desc)))
		if failed(r) {
			logging.Func(d.log, "SwapChainResizeBuffers").Errorf("Could not get swap chain description")
		} else {
			w, h = desc.BufferDesc.Width, desc.BufferDesc.Height
		}
	}
	d.hub.ViewportResized(w, h)
	return hr
}
