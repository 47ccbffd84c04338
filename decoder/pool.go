package decoder

import (
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
)

// AddFramebuffersToPool registers buffers (with their caller-supplied
// per-slot contexts) with the firmware, constructing packed-pointer
// descriptors from each buffer's physical address and the negotiated
// StreamInfo geometry. Callable only when NumFramebuffersToBeAdded() > 0
// and len(buffers) is at least that minimum, and exactly once per
// NewStreamInfoAvailable event.
func (d *DecoderInstance) AddFramebuffersToPool(buffers []framebuffer.Framebuffer, contexts []interface{}) error {
	need := d.NumFramebuffersToBeAdded()
	if need <= 0 {
		return status.New(status.InvalidCall)
	}
	if len(buffers) < need || len(buffers) != len(contexts) {
		return status.New(status.InsufficientFramebuffers)
	}

	descriptors := make([]firmware.FramebufferDescriptor, len(buffers))
	d.pool = make([]FramePoolEntry, len(buffers))
	for i, fb := range buffers {
		descriptors[i] = packedDescriptor(i, fb)
		d.pool[i] = FramePoolEntry{FB: fb, Mode: Free}
	}

	if err := d.driver.RegisterFramebuffers(d.handle, descriptors); err != nil {
		return status.Wrap(status.Error, err, "decoder: registering framebuffers")
	}

	for i := range contexts {
		d.pool[i].Context = contexts[i]
	}

	d.numFramebuffersToBeAdded = 0
	return nil
}

// packedDescriptor builds the framebuffer descriptor handed to the
// firmware: each plane's physical address is the framebuffer's DMA buffer
// base address plus its geometry's plane offset, stored in its own field.
// The addresses are not packed into combined words, and the 4096-byte
// alignment of the pool's DMA buffers is neither relied on nor checked.
func packedDescriptor(index int, fb framebuffer.Framebuffer) firmware.FramebufferDescriptor {
	base := fb.DMA.PhysicalAddress()
	m := fb.Metrics
	d := firmware.FramebufferDescriptor{
		Index:      index,
		YPhysAddr:  base + uintptr(m.YOffset),
		CbPhysAddr: base + uintptr(m.UOffset),
		CrPhysAddr: base + uintptr(m.VOffset),
	}
	if m.MvColSize > 0 {
		d.MvColPhysAddr = base + uintptr(m.MvColOffset)
	}
	return d
}

// NumFramebuffersToBeAdded returns the number of framebuffers the
// firmware still expects registered for the current stream-info
// generation; 0 means the pool is already populated.
func (d *DecoderInstance) NumFramebuffersToBeAdded() int { return d.numFramebuffersToBeAdded }

// poolReady reports whether the pool has been populated for the
// current stream-info generation (non-JPEG formats must have it
// populated before decode() proceeds past initial-info discovery).
func (d *DecoderInstance) poolReady() bool {
	return d.numFramebuffersToBeAdded == 0 && len(d.pool) > 0
}

// freeSlot finds the first Free pool slot, or -1 if none.
func (d *DecoderInstance) freeSlot() int {
	for i := range d.pool {
		if d.pool[i].Mode == Free {
			return i
		}
	}
	return -1
}
