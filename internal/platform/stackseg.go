package platform

import (
	"sync"
	"unsafe"
)

// Segment is one contiguous byte range used as a growable-stack segment.
// It mirrors the header the original split-stack runtime planted at the
// high-address end of each segment, adapted to a bookkeeping-only model:
// mnsched cannot actually execute machine code on these bytes (the real
// call stack backing a task's execution is the hidden goroutine stack
// inside ExecContext), so a Segment instead tracks exactly the fields a
// real implementation would need to retire itself correctly, and the core
// exercises that bookkeeping explicitly via Task.GrowStack/shrinkStack.
type Segment struct {
	buf  []byte
	Base uintptr // low address of this segment
	Low  uintptr // guard address: Base + GuardSize

	PrevBase  uintptr
	PrevGuard uintptr

	ArgPtr  uintptr
	ArgSize int

	Free    int // total free size of this segment, 0 if borrowed
	IsPanic bool
	Size    int // total size of this segment, Base to Base+Size
}

// StackAllocator allocates and frees Segments. It pools freed buffers by
// size class the way a slab allocator would, rather than allocating one
// []byte per segment and discarding it — segment churn on stack growth is
// exactly the kind of allocation pattern sync.Pool exists for.
type StackAllocator struct {
	pools sync.Map // size class (int) -> *sync.Pool
}

func NewStackAllocator() *StackAllocator {
	return &StackAllocator{}
}

func sizeClass(size int) int {
	c := 4096
	for c < size {
		c *= 2
	}
	return c
}

func (a *StackAllocator) poolFor(class int) *sync.Pool {
	if p, ok := a.pools.Load(class); ok {
		return p.(*sync.Pool)
	}
	p := &sync.Pool{New: func() any {
		b := make([]byte, class)
		return &b
	}}
	actual, _ := a.pools.LoadOrStore(class, p)
	return actual.(*sync.Pool)
}

const guardSize = 512

// Alloc returns a fresh segment sized to hold at least size bytes plus a
// GuardSize-sized guard zone.
func (a *StackAllocator) Alloc(size int) *Segment {
	class := sizeClass(size + guardSize)
	buf := *a.poolFor(class).Get().(*[]byte)
	base := uintptr(unsafe.Pointer(&buf[0]))
	return &Segment{
		buf:  buf,
		Base: base,
		Low:  base + guardSize,
		Free: len(buf) - guardSize,
		Size: len(buf),
	}
}

// Free returns a segment's backing buffer to the pool. It is a no-op for
// borrowed segments (Free == 0), matching the original "free field is 0,
// meaning no allocation to reclaim on retire" rule.
func (a *StackAllocator) Free(seg *Segment) {
	if seg == nil || seg.Free == 0 || seg.buf == nil {
		return
	}
	class := len(seg.buf)
	a.poolFor(class).Put(&seg.buf)
	seg.buf = nil
}

// Borrow installs a zero-allocation segment on top of an existing one,
// used by the "reflect-call" stack-growth path when the current segment
// already has room for the requested frame.
func Borrow(cur *Segment, argPtr uintptr, argSize int) *Segment {
	return &Segment{
		buf:       cur.buf,
		Base:      cur.Base,
		Low:       cur.Low,
		PrevBase:  cur.Base,
		PrevGuard: cur.Low,
		ArgPtr:    argPtr,
		ArgSize:   argSize,
		Free:      0,
		Size:      cur.Size,
	}
}

// GuardSize is exported for invariant checks and tests: a live segment's
// Low must equal Base+GuardSize.
const GuardSize = guardSize
