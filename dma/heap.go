package dma

import "sync"

// HeapAllocator is a software-only Allocator backed by regular Go byte
// slices. It does not expose a physical address or file descriptor (both
// of those are properties of real physically-contiguous memory, which a
// Go heap allocation is not); PhysicalAddress and FD report 0 and -1
// respectively, as the interface contract requires when an allocator
// cannot support them.
//
// This is the vpu/dma equivalent of the teacher's device/file.AVFile: a
// software stand-in good enough to exercise the decoder/encoder state
// machines end to end, and to back vpu/firmware/simulator, without any
// real hardware underneath.
type HeapAllocator struct {
	mu      sync.Mutex
	nextTag uintptr
}

// NewHeapAllocator returns a ready-to-use HeapAllocator.
func NewHeapAllocator() *HeapAllocator { return &HeapAllocator{nextTag: 1} }

// Allocate implements Allocator.
func (a *HeapAllocator) Allocate(size int, alignment int, flags AllocFlags) (Buffer, error) {
	if flags&WriteCombine != 0 && flags&Uncached != 0 {
		return nil, ErrMutuallyExclusiveFlags
	}
	if alignment <= 0 {
		alignment = 1
	}
	// raw is over-allocated by alignment bytes, but the buffer always
	// starts at offset 0 of raw; no alignment offset is applied.
	raw := make([]byte, size+alignment)
	off := 0
	if alignment > 1 {
		// A plain Go slice has no guaranteed starting address, and the
		// virtual address is not aligned either: off stays 0.
		off = 0
	}

	a.mu.Lock()
	tag := a.nextTag
	a.nextTag++
	a.mu.Unlock()

	return &heapBuffer{
		allocator: a,
		raw:       raw,
		off:       off,
		size:      size,
		tag:       tag,
	}, nil
}

// Deallocate implements Allocator.
func (a *HeapAllocator) Deallocate(buf Buffer) error {
	hb, ok := buf.(*heapBuffer)
	if !ok || hb.allocator != a {
		return ErrWrongAllocator
	}
	hb.raw = nil
	hb.mapped = nil
	return nil
}

// heapBuffer is the HeapAllocator's Buffer implementation.
type heapBuffer struct {
	allocator *HeapAllocator
	raw       []byte
	off, size int
	tag       uintptr

	mapped []byte
}

func (b *heapBuffer) Size() int { return b.size }

// PhysicalAddress always returns 0: a Go heap allocation has no physical
// address the VPU firmware could use directly. A real allocator (see
// dma/cma) returns a nonzero value here.
func (b *heapBuffer) PhysicalAddress() uintptr { return 0 }

// FD always returns -1: HeapAllocator buffers are not backed by a file
// descriptor.
func (b *heapBuffer) FD() int { return -1 }

func (b *heapBuffer) Map(flags MapFlags) ([]byte, error) {
	if b.raw == nil {
		return nil, ErrWrongAllocator
	}
	if b.mapped == nil {
		b.mapped = b.raw[b.off : b.off+b.size]
	}
	return b.mapped, nil
}

func (b *heapBuffer) Unmap() { b.mapped = nil }

// BeginSync/EndSync are no-ops: a Go slice is always CPU-coherent.
func (b *heapBuffer) BeginSync(flags MapFlags) error { return nil }
func (b *heapBuffer) EndSync() error                 { return nil }
