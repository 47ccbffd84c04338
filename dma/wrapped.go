package dma

import "errors"

var errNotSupported = errors.New("dma: WrappedAllocator does not allocate; wrap an existing buffer with NewWrapped instead")

// Wrapped wraps an existing, externally-owned memory region so it can
// participate in the Buffer interface without the library assuming
// ownership of it. This mirrors ImxVpuWrappedDMABuffer in the original
// library: physical_address and fd are user-supplied (0/-1 if not
// applicable), and map/unmap are backed by the user-supplied functions
// (nil means mapping is unsupported, in which case Map always fails).
//
// Deallocating a Wrapped buffer via its originating Allocator is a no-op;
// wrapping does not transfer ownership.
type Wrapped struct {
	PhysAddr uintptr
	FileDesc int
	Sz       int

	MapFunc   func(flags MapFlags) ([]byte, error)
	UnmapFunc func()

	mapped []byte
}

// NewWrapped returns a Wrapped buffer around already-allocated memory.
// Pass physAddr=0 and/or fd=-1 if the wrapped region does not support
// that form of addressing.
func NewWrapped(physAddr uintptr, fd int, size int, mapFunc func(MapFlags) ([]byte, error), unmapFunc func()) *Wrapped {
	return &Wrapped{PhysAddr: physAddr, FileDesc: fd, Sz: size, MapFunc: mapFunc, UnmapFunc: unmapFunc}
}

func (w *Wrapped) Size() int                  { return w.Sz }
func (w *Wrapped) PhysicalAddress() uintptr   { return w.PhysAddr }
func (w *Wrapped) FD() int                    { return w.FileDesc }
func (w *Wrapped) BeginSync(MapFlags) error   { return nil }
func (w *Wrapped) EndSync() error             { return nil }

func (w *Wrapped) Map(flags MapFlags) ([]byte, error) {
	if w.MapFunc == nil {
		return nil, errors.New("dma: wrapped buffer has no map function")
	}
	if w.mapped == nil {
		b, err := w.MapFunc(flags)
		if err != nil {
			return nil, err
		}
		w.mapped = b
	}
	return w.mapped, nil
}

func (w *Wrapped) Unmap() {
	if w.UnmapFunc != nil {
		w.UnmapFunc()
	}
	w.mapped = nil
}

// wrappedAllocator is a sentinel Allocator whose Deallocate is a no-op,
// for use with buffers that were wrapped rather than allocated.
type wrappedAllocator struct{}

// WrappedAllocator is the Allocator to pair with Wrapped buffers: calling
// Deallocate through it never frees anything, since Wrapped never owned
// the memory in the first place.
var WrappedAllocator Allocator = wrappedAllocator{}

func (wrappedAllocator) Allocate(size, alignment int, flags AllocFlags) (Buffer, error) {
	return nil, errNotSupported
}

func (wrappedAllocator) Deallocate(buf Buffer) error { return nil }
