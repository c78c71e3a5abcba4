package passthrough

import (
	"github.com/apex/log"

	"github.com/k2io/wrench/internal/config"
)

// DefaultXInputPath is used when XInput.Path is not configured.
const DefaultXInputPath = `%WINDIR%\system32\XInput1_3.dll`

// XInputImports lists the procedures of XInput 1.3.
var XInputImports = []Import{
	{Name: "XInputGetState"},
	{Name: "XInputSetState"},
	{Name: "XInputGetCapabilities"},
	{Name: "XInputEnable"},
	{Name: "XInputGetDSoundAudioDeviceGuids"},
	{Name: "XInputGetBatteryInformation"},
	{Name: "XInputGetKeystroke"},
	{Name: "XInputGetStateEx", Ordinal: 100},
	{Name: "XInputWaitForGuideButton", Ordinal: 101},
	{Name: "XInputCancelGuideButtonWait", Ordinal: 102},
	{Name: "XInputPowerOffController", Ordinal: 103},
}

// XInput forwards the XInput API. Pointer arguments are passed as raw
// addresses.
type XInput struct {
	lib *Library
}

// NewXInput returns the XInput forwarder configured by cfg.
func NewXInput(cfg *config.Config, loader Loader, call Caller, l log.Interface) *XInput {
	path := ConfiguredPath(cfg, DefaultXInputPath, "XInput", "Path")
	return &XInput{lib: New(path, XInputImports, loader, call, l)}
}

// Library returns the underlying library.
func (x *XInput) Library() *Library {
	return x.lib
}

func (x *XInput) GetState(userIndex uint32, state uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetState", uintptr(userIndex), state))
}

func (x *XInput) SetState(userIndex uint32, vibration uintptr) uint32 {
	return uint32(x.lib.Call("XInputSetState", uintptr(userIndex), vibration))
}

func (x *XInput) GetCapabilities(userIndex, flags uint32, capabilities uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetCapabilities", uintptr(userIndex), uintptr(flags), capabilities))
}

func (x *XInput) Enable(enable bool) {
	var v uintptr
	if enable {
		v = 1
	}
	if x.lib.Proc("XInputEnable") != 0 {
		x.lib.Call("XInputEnable", v)
	}
}

func (x *XInput) GetDSoundAudioDeviceGuids(userIndex uint32, render, capture uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetDSoundAudioDeviceGuids", uintptr(userIndex), render, capture))
}

func (x *XInput) GetBatteryInformation(userIndex uint32, devType byte, info uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetBatteryInformation", uintptr(userIndex), uintptr(devType), info))
}

func (x *XInput) GetKeystroke(userIndex, reserved uint32, keystroke uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetKeystroke", uintptr(userIndex), uintptr(reserved), keystroke))
}

func (x *XInput) GetStateEx(userIndex uint32, state uintptr) uint32 {
	return uint32(x.lib.Call("XInputGetStateEx", uintptr(userIndex), state))
}

func (x *XInput) WaitForGuideButton(userIndex, flag uint32, p uintptr) uint32 {
	return uint32(x.lib.Call("XInputWaitForGuideButton", uintptr(userIndex), uintptr(flag), p))
}

func (x *XInput) CancelGuideButtonWait(userIndex uint32) uint32 {
	return uint32(x.lib.Call("XInputCancelGuideButtonWait", uintptr(userIndex)))
}

func (x *XInput) PowerOffController(userIndex uint32) uint32 {
	return uint32(x.lib.Call("XInputPowerOffController", uintptr(userIndex)))
}
