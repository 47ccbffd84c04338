/*
DESCRIPTION
  dma.go defines the abstract, physically-contiguous memory buffer
  interface consumed by vpu/decoder, vpu/encoder and vpu/firmware. Real
  physical-memory allocation (CMA, ION, DMA-BUF) is an external
  collaborator; this package defines the contract plus one software-only
  allocator (HeapAllocator) and, in dma/cma, one real Linux-backed
  allocator.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dma defines the physically-contiguous memory buffer abstraction
// used by the VPU decoder/encoder state machines, plus a default
// software-only allocator.
package dma

import "github.com/pkg/errors"

// AllocFlags are bitwise-OR combinable flags for Allocator.Allocate.
// WriteCombine and Uncached are mutually exclusive.
type AllocFlags uint

const (
	WriteCombine AllocFlags = 1 << iota
	Uncached
)

// MapFlags are bitwise-OR combinable flags for Buffer.Map. Read and Write
// may be combined; ManualSync indicates the caller will bracket accesses
// with BeginSync/EndSync itself rather than relying on the mapping to be
// coherent.
type MapFlags uint

const (
	Read MapFlags = 1 << iota
	Write
	ManualSync
)

// Buffer is a physically contiguous memory block addressable by the VPU.
// It is exclusively owned by the Allocator that created it; only that
// allocator may Deallocate it.
type Buffer interface {
	// Size returns the size of the buffer, in bytes.
	Size() int

	// PhysicalAddress returns the physical address of the start of the
	// buffer, or 0 if the allocator cannot expose one.
	PhysicalAddress() uintptr

	// FD returns a file descriptor referring to the buffer, or -1 if the
	// allocator cannot expose one.
	FD() int

	// Map maps the buffer into the process's address space with the
	// given intent flags and returns the mapped bytes. Calling Map while
	// already mapped returns the existing mapping.
	Map(flags MapFlags) ([]byte, error)

	// Unmap unmaps the buffer. It is a no-op if not currently mapped.
	Unmap()

	// BeginSync/EndSync bracket a CPU access to a buffer mapped with
	// ManualSync, giving an allocator backed by non-coherent memory a
	// chance to flush or invalidate caches. Allocators that are always
	// coherent (like HeapAllocator) may implement these as no-ops.
	BeginSync(flags MapFlags) error
	EndSync() error
}

// Allocator allocates and deallocates Buffers. Custom allocators are
// useful for tracing allocations or hooking up ION/CMA/DMA-BUF backends;
// see dma/cma for a real Linux example.
type Allocator interface {
	// Allocate allocates a buffer of the given size, in bytes, aligned to
	// alignment bytes (0 or 1 meaning no alignment requirement), honoring
	// flags. It returns an error if allocation fails.
	Allocate(size int, alignment int, flags AllocFlags) (Buffer, error)

	// Deallocate releases buf, which must have been allocated by this
	// same Allocator.
	Deallocate(buf Buffer) error
}

// ErrWrongAllocator is returned by Deallocate when buf was not allocated
// by the Allocator it is passed to.
var ErrWrongAllocator = errors.New("dma: buffer was not allocated by this allocator")

// ErrMutuallyExclusiveFlags is returned by Allocate when both WriteCombine
// and Uncached are set.
var ErrMutuallyExclusiveFlags = errors.New("dma: WriteCombine and Uncached are mutually exclusive")
