//go:build windows && amd64

package features

import (
	"sync/atomic"
	"unsafe"

	"github.com/apex/log"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"

	"github.com/k2io/wrench"
)

// Scaleform's Movie constructor:
//
//	sub   rsp, 20h
//	xor   ebp, ebp
//	lea   rax, [rip+????]   ; Movie vtable
//	lea   r14, [rip+????]
//	mov   [rcx], r14
//	mov   dword ptr [rcx+8], 1
//	mov   [rcx+18h], rbp
//	mov   [rcx], rax
var movieCtor = mustPattern("48 83 EC 20 33 ED 48 8D 05 ?? ?? ?? ?? 4C 8D 35 ?? ?? ?? ?? 4C 89 31 C7 41 ?? ?? ?? ?? ?? 48 89 69 18 48 89 01")

const (
	vtableDispOffset = 9
	vtableRipOffset  = 13

	setViewScaleModeSlot = 14
	movieDefOffset       = 0x48
)

var movieDefGetFilename = wrench.NativeMethod{Index: 12}

func mustPattern(sig string) wrench.Pattern {
	p, err := wrench.ParsePattern(sig)
	if err != nil {
		panic(err)
	}
	return p
}

type platform struct {
	hooker *wrench.Hooker
	log    log.Interface
}

// NewPlatform returns the platform of the running game process.
func NewPlatform(h *wrench.Hooker, l log.Interface) Platform {
	return &platform{hooker: h, log: l}
}

func (p *platform) Buffers() Buffers {
	return comBuffers{}
}

// HookMovies replaces SetViewScaleMode in the Movie vtable. The executable
// is only scanned once the device exists, as it may still be encrypted at
// load time.
func (p *platform) HookMovies(u *UIScale) error {
	ctor, err := p.hooker.Scan(".text", movieCtor)
	if err != nil {
		return errors.Wrap(err, "locate the Movie constructor")
	}
	disp := *(*int32)(unsafe.Pointer(ctor + vtableDispOffset))
	table := wrench.NewVTable(p.hooker, uintptr(int64(ctor+vtableRipOffset)+int64(disp)))

	return hookSlot(table, setViewScaleModeSlot, func(original *atomic.Uintptr) uintptr {
		return wrench.Callback(func(movie, mode uintptr) uintptr {
			newMode := u.Decide(ScaleMode(uint32(mode)), movieFilename(movie))
			wrench.CallNative(original.Load(), movie, uintptr(newMode))
			return 0
		})
	})
}

func movieFilename(movie uintptr) string {
	def := *(*uintptr)(unsafe.Pointer(movie + movieDefOffset))
	name := movieDefGetFilename.Call(wrench.ObjectTable(def), def)
	if name == 0 {
		return ""
	}
	return windows.BytePtrToString((*byte)(unsafe.Pointer(name)))
}

var iidID3D11Buffer = windows.GUID{
	Data1: 0x48570b85,
	Data2: 0xd1ee,
	Data3: 0x4fcd,
	Data4: [8]byte{0xa2, 0x50, 0xeb, 0x35, 0x07, 0x22, 0xb0, 0x37},
}

var (
	unknownQueryInterface = wrench.NativeMethod{Index: 0}
	unknownAddRef         = wrench.NativeMethod{Index: 1}
	unknownRelease        = wrench.NativeMethod{Index: 2}
	bufferGetDesc         = wrench.NativeMethod{Index: 10}
)

// comBuffers talks to ID3D11Buffer through its vtable. Out parameters live
// on the heap so their addresses stay put across the native call.
type comBuffers struct{}

func (comBuffers) Buffer(resource uintptr) (uintptr, bool) {
	if resource == 0 {
		return 0, false
	}
	out := new(uintptr)
	hr := unknownQueryInterface.Call(wrench.ObjectTable(resource), resource,
		uintptr(unsafe.Pointer(&iidID3D11Buffer)), uintptr(unsafe.Pointer(out)))
	return *out, int32(hr) >= 0 && *out != 0
}

func (comBuffers) Desc(buffer uintptr) BufferDesc {
	desc := new(BufferDesc)
	bufferGetDesc.Call(wrench.ObjectTable(buffer), buffer, uintptr(unsafe.Pointer(desc)))
	return *desc
}

func (comBuffers) AddRef(buffer uintptr) {
	unknownAddRef.Call(wrench.ObjectTable(buffer), buffer)
}

func (comBuffers) Release(buffer uintptr) {
	unknownRelease.Call(wrench.ObjectTable(buffer), buffer)
}
