//go:build amd64 && (linux || windows)

package wrench

import (
	"github.com/pkg/errors"

	"github.com/k2io/wrench/internal/disasm"
	"github.com/k2io/wrench/internal/logging"
	"github.com/k2io/wrench/internal/mem"
)

// Detour redirects calls of the function at source to replacement. Jump
// thunks at source are followed first. The returned trampoline runs the
// displaced prologue and resumes the original body, so the replacement can
// still reach the original through it.
//
// Nothing at source is written unless every earlier step succeeded.
func (h *Hooker) Detour(source, replacement uintptr) (*Trampoline, error) {
	l := logging.Func(h.log, "Detour")
	src := h.resolver.Canonicalize(source)

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.hooks[src]; ok {
		l.Errorf("Function at %#x is already detoured", src)
		return nil, errors.Wrapf(ErrDoubleHook, "%#x", src)
	}

	buf, err := allocNear(src, trampolineSize)
	if err != nil {
		l.Errorf("Could not allocate trampoline near %#x", src)
		return nil, err
	}
	release := func() {
		if err := mem.Free(buf, trampolineSize); err != nil {
			l.Warnf("Could not free trampoline at %#x: %v", buf, err)
		}
	}

	run := disasm.AnalyzeAt(disasm.Live, src, minPatchSize)
	if run.Length < minPatchSize {
		release()
		l.Errorf("Function at %#x too small to detour: %d bytes", src, run.Length)
		return nil, errors.Wrapf(ErrTooSmall, "%#x: %d bytes", src, run.Length)
	}
	if !run.Relocatable {
		release()
		l.Errorf("Function at %#x starts with position dependent code", src)
		return nil, errors.Wrapf(ErrRelativeAddr, "%#x", src)
	}

	original := make([]byte, run.Length)
	copy(original, mem.Bytes(src, run.Length))

	lay := layout{
		displaced:   original,
		resume:      src + uintptr(run.Length),
		replacement: replacement,
	}
	jump, err := farJump(src, buf+uintptr(lay.slotOffset()))
	if err != nil {
		release()
		l.Errorf("Trampoline at %#x out of reach of %#x", buf, src)
		return nil, err
	}

	copy(mem.Bytes(buf, lay.size()), assemble(lay))
	if _, err := mem.Protect(buf, trampolineSize, mem.ReadExecute); err != nil {
		l.Warnf("Could not seal trampoline at %#x: %v", buf, err)
	}

	if err := writeCode(l, src, patchRun(jump, run.Length)); err != nil {
		release()
		l.Errorf("Could not patch %#x: %v", src, err)
		return nil, err
	}

	t := &Trampoline{
		hooker:      h,
		source:      src,
		replacement: replacement,
		buf:         buf,
		original:    original,
	}
	h.hooks[src] = t
	l.Debugf("Detoured %#x to %#x through %#x, %d bytes displaced", src, replacement, buf, run.Length)
	return t, nil
}
