// Package events fans Direct3D device notifications out to subscribers.
//
// Interface pointers are carried as raw addresses; subscribers that need to
// call through them do so with the native method helpers of package wrench.
package events

import (
	"sync"
)

// MappedSubresource mirrors D3D11_MAPPED_SUBRESOURCE.
type MappedSubresource struct {
	Data       uintptr
	RowPitch   uint32
	DepthPitch uint32
}

// Callbacks is one subscriber. Nil members are skipped.
type Callbacks struct {
	AfterDeviceCreate         func(context, device, swapChain uintptr)
	AfterResourceMap          func(context, resource uintptr, mapped *MappedSubresource)
	BeforeResourceUnmap       func(context, resource uintptr)
	AfterViewportResize       func(width, height uint32)
	AfterVSSetConstantBuffers func(context uintptr, startSlot, numBuffers uint32, buffers uintptr)
}

// Needs tells which device methods have to be intercepted to serve the
// registered subscribers.
type Needs struct {
	Map             bool
	Unmap           bool
	Resize          bool
	ConstantBuffers bool
}

// Any reports whether any interception is needed.
func (n Needs) Any() bool {
	return n.Map || n.Unmap || n.Resize || n.ConstantBuffers
}

// Hub keeps subscribers in registration order.
type Hub struct {
	mu   sync.RWMutex
	subs []Callbacks
}

// NewHub returns a hub without subscribers.
func NewHub() *Hub {
	return &Hub{}
}

// Register appends a subscriber.
func (h *Hub) Register(cb Callbacks) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs = append(h.subs, cb)
}

// Len returns the number of subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) snapshot() []Callbacks {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Callbacks(nil), h.subs...)
}

// Needs folds the subscribers' interests.
func (h *Hub) Needs() Needs {
	var n Needs
	for _, cb := range h.snapshot() {
		n.Map = n.Map || cb.AfterResourceMap != nil
		n.Unmap = n.Unmap || cb.BeforeResourceUnmap != nil
		n.Resize = n.Resize || cb.AfterViewportResize != nil
		n.ConstantBuffers = n.ConstantBuffers || cb.AfterVSSetConstantBuffers != nil
	}
	return n
}

// DeviceCreated notifies that a device, its immediate context and swap chain
// were created.
func (h *Hub) DeviceCreated(context, device, swapChain uintptr) {
	for _, cb := range h.snapshot() {
		if cb.AfterDeviceCreate != nil {
			cb.AfterDeviceCreate(context, device, swapChain)
		}
	}
}

// ResourceMapped notifies a successful Map.
func (h *Hub) ResourceMapped(context, resource uintptr, mapped *MappedSubresource) {
	for _, cb := range h.snapshot() {
		if cb.AfterResourceMap != nil {
			cb.AfterResourceMap(context, resource, mapped)
		}
	}
}

// ResourceUnmapping notifies an Unmap that is about to happen.
func (h *Hub) ResourceUnmapping(context, resource uintptr) {
	for _, cb := range h.snapshot() {
		if cb.BeforeResourceUnmap != nil {
			cb.BeforeResourceUnmap(context, resource)
		}
	}
}

// ViewportResized notifies new back buffer dimensions. Empty sizes are
// dropped.
func (h *Hub) ViewportResized(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	for _, cb := range h.snapshot() {
		if cb.AfterViewportResize != nil {
			cb.AfterViewportResize(width, height)
		}
	}
}

// ConstantBuffersSet notifies a VSSetConstantBuffers call.
func (h *Hub) ConstantBuffersSet(context uintptr, startSlot, numBuffers uint32, buffers uintptr) {
	for _, cb := range h.snapshot() {
		if cb.AfterVSSetConstantBuffers != nil {
			cb.AfterVSSetConstantBuffers(context, startSlot, numBuffers, buffers)
		}
	}
}
