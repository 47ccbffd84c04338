package decoder

import (
	"context"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/codec/h264util"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
)

// Decode is the heart of the state machine: it advances the decoder by
// one step, reporting what happened via the returned OutputCode. A
// non-OK error requires the caller to close the instance, except for
// the flow-control outputs listed in spec.md section 7
// (MoreInputNeeded, NewStreamInfoAvailable, FrameSkipped, EOS,
// VideoParametersChanged all return a nil error).
func (d *DecoderInstance) Decode(ctx context.Context) (OutputCode, error) {
	d.skipped = nil

	if d.drainEnabled {
		if d.openParams.Format == codec.FormatJPEG {
			return OutputEOS, nil
		}
		if !d.drainEOSSent {
			if err := d.driver.SignalEOS(d.handle); err != nil {
				return OutputNone, status.Wrap(status.Error, err, "decoder: signalling EOS")
			}
			d.drainEOSSent = true
		}
	}

	if d.openParams.Format == codec.FormatJPEG {
		if changed, err := d.checkJPEGFormatChange(); err != nil {
			return OutputNone, err
		} else if changed {
			return OutputNewStreamInfoAvailable, nil
		}
	}
	if d.openParams.Format == codec.FormatH264 {
		if changed := d.checkH264FormatChange(); changed {
			return OutputVideoParametersChanged, nil
		}
	}

	if !d.initialInfoAvailable && d.mainHeaderPushed {
		return d.discoverInitialInfo()
	}

	if !d.drainEnabled && d.staged == nil {
		return OutputMoreInputNeeded, nil
	}
	if d.openParams.Format != codec.FormatJPEG && d.initialInfoAvailable && !d.poolReady() {
		return OutputNone, status.New(status.InvalidCall)
	}
	if d.outputDMA == nil {
		return OutputNone, status.New(status.InvalidCall)
	}

	outputFB := framebuffer.Framebuffer{DMA: d.outputDMA, Metrics: d.info.Metrics, Context: d.outputContext}

	fwCode, err := d.driver.StartDecodeFrame(d.handle, packedDescriptor(0, outputFB))
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "decoder: starting decode frame")
	}
	switch fwCode {
	case status.FwJPEGBitEmpty:
		return OutputMoreInputNeeded, nil
	case status.FwJPEGEOS:
		return OutputEOS, nil
	case status.FwSuccess:
		// proceed
	default:
		return OutputNone, status.Wrap(status.FromFirmware(fwCode), nil, "decoder: firmware start_one_frame failed")
	}

	arrived, err := d.waitForInterrupt(ctx)
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "decoder: waiting for firmware interrupt")
	}
	if !arrived {
		// Drain the output record before reporting the timeout.
		_, _ = d.driver.DrainDecodeOutput(d.handle)
		return OutputNone, status.New(status.Timeout)
	}

	out, err := d.driver.DrainDecodeOutput(d.handle)
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "decoder: draining decode output")
	}
	d.lastOutput = out

	// VP8 quirk: an internally-decoded frame with no displayable index
	// is a dropped internal frame, not a skip-worthy corruption.
	if d.openParams.Format == codec.FormatVP8 && out.IndexFrameDecoded >= 0 && out.IndexFrameDisplay == firmware.NoFrame {
		out.InternalFrame = true
	}
	if d.openParams.Format == codec.FormatJPEG {
		out.IndexFrameDecoded = 0
		out.IndexFrameDisplay = 0
	}

	if out.VideoParamsChanged {
		return OutputVideoParametersChanged, nil
	}

	if out.IndexFrameDecoded == firmware.AllDecoded {
		return OutputNone, status.New(status.Error)
	}

	if out.FrameCorrupted {
		d.recordSkip(SkipCorruptedFrame)
		d.unstage()
		return OutputFrameSkipped, nil
	}

	if out.IndexFrameDecoded < 0 && (out.IndexFrameDisplay == firmware.NoFrame || out.IndexFrameDisplay == firmware.SkipModeNoFrame) {
		reason := SkipCorruptedFrame
		if out.InternalFrame {
			reason = SkipInternalFrame
		}
		d.recordSkip(reason)
		d.unstage()
		return OutputFrameSkipped, nil
	}

	if out.IndexFrameDecoded >= 0 {
		slot := &d.pool[out.IndexFrameDecoded]
		slot.Context = d.staged.Context
		slot.PTS, slot.DTS = d.staged.PTS, d.staged.DTS
		slot.Mode = ReservedForDecoding
		slot.InterlacingMode = boolToInterlacingMode(out.Interlaced)
		slot.FrameTypes = deriveFrameTypes(d.openParams.Format, out.PicType, out.IDRFlag)
		d.unstage()
		d.numUsed++
	}

	if out.IndexFrameDisplay >= 0 {
		d.pool[out.IndexFrameDisplay].Mode = ContainsDisplayableFrame
		d.availableFrameIdx = out.IndexFrameDisplay
		return OutputDecodedFrameAvailable, nil
	}
	if out.IndexFrameDisplay == firmware.AllDisplayed {
		d.drainEnabled = false
		return OutputEOS, nil
	}

	return OutputMoreInputNeeded, nil
}

func boolToInterlacingMode(interlaced bool) int {
	if interlaced {
		return 1
	}
	return 0
}

func (d *DecoderInstance) unstage() { d.staged = nil }

func (d *DecoderInstance) recordSkip(reason SkipReason) {
	rec := &SkippedFrameRecord{Reason: reason}
	if d.staged != nil {
		rec.Context, rec.PTS, rec.DTS = d.staged.Context, d.staged.PTS, d.staged.DTS
	}
	d.skipped = rec
}

// waitForInterrupt retries up to firmware.MaxTimeouts times, each
// bounded by firmware.WaitTimeout; a timeout is only reported to the
// caller once the retries are exhausted, after which Decode drains the
// output record before returning the timeout (a timeout is fatal
// regardless, per spec.md section 5).
func (d *DecoderInstance) waitForInterrupt(ctx context.Context) (bool, error) {
	for i := 0; i < firmware.MaxTimeouts; i++ {
		arrived, err := d.driver.WaitDecode(ctx, d.handle, firmware.WaitTimeout)
		if err != nil {
			return false, err
		}
		if arrived {
			return true, nil
		}
	}
	return false, nil
}

// discoverInitialInfo requests stream info from the firmware, tolerating
// insufficient data via the escape flag.
func (d *DecoderInstance) discoverInitialInfo() (OutputCode, error) {
	info, code, err := d.driver.QueryInitialInfo(d.handle, true)
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "decoder: querying initial info")
	}
	switch code {
	case status.OK:
		d.info = StreamInfo{
			ColorFormat:            framebuffer.ColorFormat(info.ColorFormat),
			MinFramebufferCount:    info.MinFramebufferCount,
			OutputFramebufferSize:  info.OutputFramebufferSize,
			OutputFramebufferAlign: info.OutputFramebufferAlign,
			FrameRateNum:           info.FrameRateNum,
			FrameRateDenom:         info.FrameRateD,
			Interlaced:             info.Interlaced,
			SemiPlanar:             info.SemiPlanar,
		}
		d.info.Metrics = framebuffer.Compute(d.info.ColorFormat, info.Width, info.Height, d.openParams.FramebufferAlignment, info.Interlaced, d.openParams.ChromaInterleave)
		d.initialInfoAvailable = true
		extra := NUMExtraFramebuffers
		if d.openParams.Format == codec.FormatJPEG {
			extra = 0
		}
		d.numFramebuffersToBeAdded = info.MinFramebufferCount + extra
		return OutputNewStreamInfoAvailable, nil
	case status.Timeout:
		return OutputNone, status.New(status.Timeout)
	default:
		return OutputNone, status.Wrap(status.Error, nil, "decoder: firmware initial info query failed")
	}
}

// checkJPEGFormatChange parses the staged frame's SOF segment (via the
// JPEG muncher) and compares it against the instance's shadow. On a
// mismatch it rebuilds StreamInfo, frees the pool, and requests a fresh
// set of framebuffers.
func (d *DecoderInstance) checkJPEGFormatChange() (bool, error) {
	if d.staged == nil {
		return false, nil
	}
	info, err := d.muncher.ParseFrame(d.staged.Data)
	if err != nil {
		return false, nil
	}
	if info.Width == 0 || info.Height == 0 {
		return false, nil
	}
	if info.Width == d.jpegWidth && info.Height == d.jpegHeight && info.ChromaSubsampling == d.jpegSubsampling {
		return false, nil
	}

	d.jpegWidth, d.jpegHeight, d.jpegSubsampling = info.Width, info.Height, info.ChromaSubsampling
	cf := jpegSubsamplingToColorFormat(info.ChromaSubsampling)
	d.info = StreamInfo{ColorFormat: cf, MinFramebufferCount: 1}
	d.info.Metrics = framebuffer.Compute(cf, info.Width, info.Height, d.openParams.FramebufferAlignment, false, d.openParams.ChromaInterleave)
	d.initialInfoAvailable = true
	d.pool = nil
	d.numFramebuffersToBeAdded = 1
	return true, nil
}

// checkH264FormatChange scans the staged frame for an in-band SPS NAL
// unit and compares its resolution against the last one seen, ahead of
// submitting anything to the firmware. Decode calls it before the staged
// frame is submitted, and a detected change makes Decode return
// OutputVideoParametersChanged at once. Decode separately checks the
// firmware's own VideoParamsChanged flag in the drained output record.
func (d *DecoderInstance) checkH264FormatChange() bool {
	if d.staged == nil {
		return false
	}
	changed := false
	for _, nal := range h264util.SplitNALUnits(d.staged.Data) {
		if nal.Type != h264util.NALTypeSPS {
			continue
		}
		w, h, err := h264util.ParseSPSResolution(nal.Payload)
		if err != nil {
			continue
		}
		if d.h264SPSSeen && (w != d.h264Width || h != d.h264Height) {
			changed = true
			d.log.Info("decoder: in-band SPS reports new resolution %dx%d (was %dx%d)", w, h, d.h264Width, d.h264Height)
		}
		d.h264Width, d.h264Height, d.h264SPSSeen = w, h, true
	}
	return changed
}

func jpegSubsamplingToColorFormat(s string) framebuffer.ColorFormat {
	switch s {
	case "4:2:2":
		return framebuffer.YUV422Horizontal
	case "4:4:4":
		return framebuffer.YUV444
	default:
		return framebuffer.YUV420
	}
}
