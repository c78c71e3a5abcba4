/*
Package wrench redirects functions of the running process.

A detour overwrites the first instructions of a function with a jump to a
replacement. The displaced instructions are copied into a trampoline page
allocated within 2 GiB of the function, followed by a stub that jumps back to
the rest of the original body:

	source:      jmp [rip+disp32] -> slot     ; nops up to the displaced length
	trampoline:  <displaced instructions>
	             push rax
	             mov rax, source+length
	             xchg [rsp], rax
	             ret
	slot:        <replacement address>

Calling the trampoline therefore behaves like the original function. Jump
thunks at the source are followed before patching, and functions whose first
16 bytes hold a partial instruction or position dependent code are refused.

A vtable hook swaps a single pointer in a table of function pointers instead.

	h := wrench.New(wrench.WithLogger(logger))
	t, err := h.Detour(target, wrench.FuncAddr(replacement))
	if err != nil {
		// not installed, the target is untouched
	}
	original = wrench.MakeFunc[func(int, int) int](t.Addr())
*/
package wrench
