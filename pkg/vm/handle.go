package vm

import (
	"sync/atomic"
	"unsafe"
	"weak"
)

// gcColor is the tri-color mark used by the cycle collector (§4.2).
type gcColor uint8

const (
	colorBlack gcColor = iota // in use, or assumed live
	colorGray                 // candidate for collection, being traced
	colorWhite                // not reached from any root in the last pass
	colorPurple                // buffered as a possible cycle root
)

// GCHeader is embedded in every heap payload the engine allocates —
// strings, symbols, bigints, and every object kind — giving each a
// reference count and the bookkeeping the cycle collector needs. Go's own
// garbage collector still owns the memory (we cannot free it early
// without `unsafe` shenanigans this exercise avoids), but the explicit
// count lets us honor spec.md §4.2's contract precisely: Retain()/Release()
// pairs model the reference-counted heap the spec describes, and the
// tracer below finds cycles that reference counting alone cannot collect.
type GCHeader struct {
	refs    int32
	color   gcColor
	buffered bool
	traceFn  func(visit func(unsafe.Pointer))
	finalize func()
}

// Retain increments the reference count. Only newHandle calls it: storing
// a Value in a variable, a property or a register does not retain its
// payload.
func (h *GCHeader) Retain() {
	atomic.AddInt32(&h.refs, 1)
	h.color = colorBlack
}

// Release decrements the reference count. A count that reaches zero runs
// the payload's finalize hook at once (Go's collector still owns the
// memory); a count that stays positive but drops is a cycle
// collection candidate and gets buffered with the collector (§4.2).
func (h *GCHeader) Release(gc *Collector) {
	n := atomic.AddInt32(&h.refs, -1)
	if n == 0 {
		if h.finalize != nil {
			h.finalize()
		}
		return
	}
	if n > 0 && !h.buffered {
		h.buffered = true
		gc.bufferSuspect(h)
	}
}

func (h *GCHeader) RefCount() int32 { return atomic.LoadInt32(&h.refs) }

// Handle is a strong, reference-counted pointer to a heap payload —
// the §4.2 "strong handle". Object/String/Symbol/BigInt boxes are reached
// through Value.obj directly for speed; Handle exists for embedder code
// that needs to hold a reference outside of a Value itself. Map and Set
// store plain Values, not Handles.
type Handle struct {
	header *GCHeader
	ptr    unsafe.Pointer
}

func newHandle(header *GCHeader, ptr unsafe.Pointer) Handle {
	header.Retain()
	return Handle{header: header, ptr: ptr}
}

func (h Handle) Release(gc *Collector) {
	if h.header != nil {
		h.header.Release(gc)
	}
}

func (h Handle) Ptr() unsafe.Pointer { return h.ptr }

// WeakHandle does not keep its target alive; Upgrade yields the strong
// handle iff the target is still live (§4.2). Built on Go's own weak
// pointers (stdlib `weak` package) since the payload is also reachable by
// Go's tracing GC — our refcount layer governs *logical* JS liveness
// (WeakMap/WeakRef semantics), while `weak.Pointer` tells us whether the
// physical memory has actually been reclaimed yet.
type WeakHandle struct {
	weak   weak.Pointer[GCHeader]
	ptr    unsafe.Pointer
	logical *GCHeader // retained only to read RefCount(), never to keep memory alive
}

func NewWeakHandle(header *GCHeader, ptr unsafe.Pointer) WeakHandle {
	return WeakHandle{weak: weak.Make(header), ptr: ptr, logical: header}
}

// Upgrade returns the strong pointer and true iff the target is still
// live: both physically present (Go hasn't reclaimed it) and logically
// live (its JS reference count has not dropped to zero).
func (w WeakHandle) Upgrade() (unsafe.Pointer, bool) {
	if w.weak.Value() == nil {
		return nil, false
	}
	if w.logical.RefCount() <= 0 {
		return nil, false
	}
	return w.ptr, true
}

// Collector is the opportunistic cycle collector (§4.2): reference-count
// decrements that leave residual refs buffer their object as a suspected
// cycle root, and CollectCycles traces from the registered roots over
// that buffer (see CollectCycles for what it does with each suspect).
type Collector struct {
	roots   []*GCHeader
	suspect []*GCHeader
}

func NewCollector() *Collector {
	return &Collector{}
}

func (gc *Collector) bufferSuspect(h *GCHeader) {
	gc.suspect = append(gc.suspect, h)
}

// AddRoot registers an externally-held reference (a live VM frame, an
// embedder handle) as a GC root per §3 invariant 7.
func (gc *Collector) AddRoot(h *GCHeader) {
	gc.roots = append(gc.roots, h)
}

// CollectCycles marks everything reachable from roots black, then walks
// the suspect buffer: a suspect whose reference count is zero or below is
// finalized and counted in the result; a reachable suspect leaves the
// buffer; an unreached suspect with residual refs is painted white and
// stays buffered for the next pass. It does not break or reclaim cycles
// among unreached suspects. Nothing in this core calls CollectCycles or
// AddRoot.
func (gc *Collector) CollectCycles() int {
	if len(gc.suspect) == 0 {
		return 0
	}
	reachable := make(map[*GCHeader]bool, len(gc.roots)*4)
	var mark func(h *GCHeader)
	mark = func(h *GCHeader) {
		if h == nil || reachable[h] {
			return
		}
		reachable[h] = true
		h.color = colorBlack
		if h.traceFn != nil {
			// GCHeader is always the first embedded field of a traced payload,
			// so reinterpreting the visited pointer recovers its header.
			h.traceFn(func(p unsafe.Pointer) {
				mark((*GCHeader)(p))
			})
		}
	}
	for _, r := range gc.roots {
		mark(r)
	}
	collected := 0
	remaining := gc.suspect[:0]
	for _, h := range gc.suspect {
		h.buffered = false
		if reachable[h] || h.RefCount() <= 0 {
			if h.RefCount() <= 0 {
				if h.finalize != nil {
					h.finalize()
				}
				collected++
			}
			continue
		}
		// Still has residual refs and wasn't reached from any root: it may
		// be part of an unreachable cycle or a live object this pass's root
		// set didn't cover; either way it stays buffered for the next pass.
		h.color = colorWhite
		remaining = append(remaining, h)
	}
	gc.suspect = remaining
	return collected
}
