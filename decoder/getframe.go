package decoder

import (
	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/status"
)

// GetDecodedFrame is valid only after a Decode call reported
// OutputDecodedFrameAvailable. For non-JPEG formats it invokes the
// detile/copy adapter from the pool slot's DMA buffer into the
// registered output DMA buffer; for JPEG the firmware has already
// written the output buffer directly. The slot is then cleared and
// returned to Free.
func (d *DecoderInstance) GetDecodedFrame() (RawFrame, error) {
	idx := d.availableFrameIdx
	if idx < 0 {
		return RawFrame{}, status.New(status.InvalidCall)
	}
	slot := &d.pool[idx]

	var out RawFrame
	if d.openParams.Format != codec.FormatJPEG {
		dst := slot.FB
		dst.DMA = d.outputDMA
		dst.Context = d.outputContext
		if err := d.detiler.Copy(slot.FB, dst); err != nil {
			return RawFrame{}, status.Wrap(status.Error, err, "decoder: detiling decoded frame")
		}
		out.FB = dst
	} else {
		out.FB = slot.FB
		out.FB.DMA = d.outputDMA
	}

	out.FrameTypes = slot.FrameTypes
	out.InterlacingMode = slot.InterlacingMode
	out.PTS, out.DTS = slot.PTS, slot.DTS
	out.Context = slot.Context

	slot.Context = nil
	slot.Mode = Free
	if d.openParams.Format != codec.FormatJPEG {
		if err := d.driver.ClearDisplayFlag(d.handle, idx); err != nil {
			d.log.Warning("decoder: clearing display flag for slot %d: %v", idx, err)
		}
	}
	d.numUsed--
	d.availableFrameIdx = -1

	return out, nil
}
