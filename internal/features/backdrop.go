package features

import (
	"sync"
	"unsafe"

	"github.com/apex/log"

	"github.com/k2io/wrench/internal/events"
	"github.com/k2io/wrench/internal/logging"
)

// BufferDesc mirrors D3D11_BUFFER_DESC.
type BufferDesc struct {
	ByteWidth           uint32
	Usage               uint32
	BindFlags           uint32
	CPUAccessFlags      uint32
	MiscFlags           uint32
	StructureByteStride uint32
}

const (
	usageDynamic       = 2
	bindConstantBuffer = 0x4
	cpuAccessWrite     = 0x10000
)

// Buffers reaches ID3D11Buffer objects. Buffer returns a referenced buffer
// the caller releases.
type Buffers interface {
	Buffer(resource uintptr) (uintptr, bool)
	Desc(buffer uintptr) BufferDesc
	AddRef(buffer uintptr)
	Release(buffer uintptr)
}

const (
	backdropSize = 0x230
	maxMapped    = 8

	// float offsets in the backdrop constants
	countIndex  = 8
	vectorIndex = 12
)

func isBackdropBuffer(d BufferDesc) bool {
	return d.ByteWidth == backdropSize &&
		d.Usage == usageDynamic &&
		d.BindFlags == bindConstantBuffer &&
		d.CPUAccessFlags == cpuAccessWrite &&
		d.MiscFlags == 0 &&
		d.StructureByteStride == 0
}

func hasBackdropData(m *events.MappedSubresource) bool {
	return m != nil && m.Data != 0 && m.RowPitch == backdropSize && m.DepthPitch == backdropSize
}

type mappedBuffer struct {
	buffer uintptr
	data   events.MappedSubresource
}

// Backdrop widens the menu backdrop to the viewport aspect ratio by
// rewriting its constant buffer before it is unmapped.
type Backdrop struct {
	buffers Buffers
	log     log.Interface

	mu     sync.Mutex
	scale  float32
	mapped [maxMapped]mappedBuffer
}

// NewBackdrop returns the fix over buffers.
func NewBackdrop(buffers Buffers, l log.Interface) *Backdrop {
	return &Backdrop{buffers: buffers, log: l, scale: 1}
}

// Callbacks returns the hub subscriber.
func (b *Backdrop) Callbacks() events.Callbacks {
	return events.Callbacks{
		AfterResourceMap:    b.OnResourceMap,
		BeforeResourceUnmap: b.OnResourceUnmap,
		AfterViewportResize: b.OnViewportResize,
	}
}

// Scale returns the horizontal factor applied to backdrop vectors.
func (b *Backdrop) Scale() float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scale
}

// OnViewportResize recomputes the scale against a 16:9 layout.
func (b *Backdrop) OnViewportResize(width, height uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scale = (float32(width) / float32(height)) / (16.0 / 9.0)
}

// OnResourceMap remembers mappings of the backdrop buffer.
func (b *Backdrop) OnResourceMap(_, resource uintptr, mapped *events.MappedSubresource) {
	buffer, ok := b.buffers.Buffer(resource)
	if !ok {
		return
	}
	defer b.buffers.Release(buffer)

	if !isBackdropBuffer(b.buffers.Desc(buffer)) || !hasBackdropData(mapped) {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.mapped {
		if b.mapped[i].buffer == 0 {
			b.buffers.AddRef(buffer)
			b.mapped[i] = mappedBuffer{buffer: buffer, data: *mapped}
			return
		}
	}
	logging.Func(b.log, "OnResourceMap").Warnf("More than %d backdrop buffers mapped", maxMapped)
}

// OnResourceUnmap rewrites a remembered mapping and forgets it.
func (b *Backdrop) OnResourceUnmap(_, resource uintptr) {
	buffer, ok := b.buffers.Buffer(resource)
	if !ok {
		return
	}
	defer b.buffers.Release(buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.mapped {
		m := &b.mapped[i]
		if m.buffer != buffer {
			continue
		}
		floats := unsafe.Slice((*float32)(unsafe.Pointer(m.data.Data)), backdropSize/4)
		rescale(floats, b.scale)
		b.buffers.Release(m.buffer)
		*m = mappedBuffer{}
		return
	}
}

// rescale scales the x and z of each backdrop vector around the center.
func rescale(floats []float32, scale float32) {
	count := int(floats[countIndex] + 0.5)
	if limit := (len(floats) - vectorIndex) / 4; count > limit {
		count = limit
	}
	for i := 0; i < count; i++ {
		v := floats[vectorIndex+i*4:]
		v[0] = (v[0]-0.5)*scale + 0.5
		v[2] = (v[2]-0.5)*scale + 0.5
	}
}
