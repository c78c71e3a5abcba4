//go:build amd64 && (linux || windows)

package wrench

import (
	"sync"

	"github.com/apex/log"
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/disasm"
	"github.com/k2io/wrench/internal/image"
	"github.com/k2io/wrench/internal/logging"
)

var (
	// ErrDoubleHook means the target is already detoured
	ErrDoubleHook = errors.New("double hook")
	// ErrNoMemory means no free page was found close enough to the target
	ErrNoMemory = errors.New("no free memory near target")
	// ErrTooSmall means the target has fewer decodable bytes than the patch needs
	ErrTooSmall = errors.New("function too small to detour")
	// ErrRelativeAddr means a displaced instruction is relative to its own address
	ErrRelativeAddr = errors.New("relative address in instruction")
	// ErrOutOfRange means a displacement does not fit 32 bits
	ErrOutOfRange = errors.New("displacement out of range")
	// ErrProtect means the OS refused a protection change
	ErrProtect = errors.New("cannot change memory protection")
	// ErrInvalidPattern means pattern bytes and mask disagree
	ErrInvalidPattern = errors.New("invalid pattern")
)

// Hooker installs detours and vtable patches in the current process. It owns
// the log, the resolved image and the registry of installed detours, keyed
// by resolved target address.
type Hooker struct {
	log      log.Interface
	resolver *disasm.Resolver

	// protect the hooks map
	mu    sync.Mutex
	hooks map[uintptr]*Trampoline

	imageOnce sync.Once
	image     *image.Image
	imageErr  error
}

// Option configures a Hooker.
type Option func(*Hooker)

// WithLogger sets the log every failure is reported to.
func WithLogger(l log.Interface) Option {
	return func(h *Hooker) {
		h.log = l
	}
}

// WithMaxHops bounds jump chain resolution.
func WithMaxHops(n int) Option {
	return func(h *Hooker) {
		h.resolver.MaxHops = n
	}
}

// WithImage replaces the image of the running executable.
func WithImage(img *image.Image) Option {
	return func(h *Hooker) {
		h.imageOnce.Do(func() {
			h.image = img
		})
	}
}

// New returns a Hooker with an empty registry.
func New(opts ...Option) *Hooker {
	h := &Hooker{
		log:      logging.Discard,
		resolver: disasm.NewResolver(disasm.Live, nil),
		hooks:    make(map[uintptr]*Trampoline),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.resolver.Log = h.log
	return h
}

// Canonicalize follows the jump chain starting at addr.
func (h *Hooker) Canonicalize(addr uintptr) uintptr {
	return h.resolver.Canonicalize(addr)
}

// Hooked returns the trampoline installed at the resolved target.
func (h *Hooker) Hooked(target uintptr) (*Trampoline, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	t, ok := h.hooks[target]
	return t, ok
}

// Close releases every installed detour.
func (h *Hooker) Close() error {
	h.mu.Lock()
	all := make([]*Trampoline, 0, len(h.hooks))
	for _, t := range h.hooks {
		all = append(all, t)
	}
	h.mu.Unlock()

	var first error
	for _, t := range all {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
