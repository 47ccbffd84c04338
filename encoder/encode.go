package encoder

import (
	"context"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
)

// PushRawFrame stages frame for the next Encode call; rejects a frame
// while one is already staged.
func (e *EncoderInstance) PushRawFrame(frame RawFrame) error {
	if e.staged != nil {
		return status.New(status.InvalidCall)
	}
	e.staged = &frame
	return nil
}

// Encode requires a staged frame and, for non-JPEG formats, a ready
// pool. It forces an I/IDR picture when the staged frame requests one
// or closed-GOP emulation demands it, submits the frame to the
// firmware, waits with the decoder's retry policy, and always drains
// the output record even after a timeout.
func (e *EncoderInstance) Encode(ctx context.Context) (OutputCode, error) {
	if e.staged == nil {
		return OutputMoreInputNeeded, nil
	}
	if e.openParams.Format != codec.FormatJPEG && !e.poolReady() {
		return OutputNone, status.New(status.InvalidCall)
	}

	if e.openParams.Format == codec.FormatJPEG {
		scratch := make([]byte, 1024)
		n, err := e.driver.GenerateHeader(e.handle, firmware.HeaderJPEG, scratch)
		if err != nil {
			return OutputNone, status.Wrap(status.Error, err, "encoder: generating JPEG header")
		}
		e.headers[firmware.HeaderJPEG] = append([]byte(nil), scratch[:n]...)
	}

	forceI := e.staged.FrameType == FrameI || e.staged.FrameType == FrameIDR
	if e.openParams.Format == codec.FormatH264 && e.intervalBetweenIDR > 0 && e.frameCounter%e.intervalBetweenIDR == 0 {
		forceI = true
	}

	srcFB := framebuffer.Framebuffer{DMA: e.staged.FB.DMA, Metrics: e.inputMetrics}
	fwCode, startErr := e.driver.StartEncodeFrame(e.handle, referenceDescriptor(0, srcFB), forceI)
	if startErr != nil {
		return OutputNone, status.Wrap(status.Error, startErr, "encoder: starting encode frame")
	}
	if fwCode != status.FwSuccess {
		return OutputNone, status.Wrap(status.FromFirmware(fwCode), nil, "encoder: firmware start_one_frame failed")
	}

	arrived, err := e.waitForInterrupt(ctx)
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "encoder: waiting for firmware interrupt")
	}
	if !arrived {
		// Always drain even on timeout, per spec.md 4.7.
		_, _ = e.driver.DrainEncodeOutput(e.handle)
		return OutputNone, status.New(status.Timeout)
	}

	out, err := e.driver.DrainEncodeOutput(e.handle)
	if err != nil {
		return OutputNone, status.Wrap(status.Error, err, "encoder: draining encode output")
	}

	frameType := lookupPicType(out.PicType)
	if forceI && e.openParams.Format == codec.FormatH264 {
		frameType = FrameIDR
	}

	isFirst := e.firstFrame
	e.firstFrame = false

	prepend := e.openParams.Format == codec.FormatJPEG ||
		((e.openParams.Format == codec.FormatH264 || e.openParams.Format == codec.FormatMPEG4) &&
			(isFirst || frameType == FrameIDR || frameType == FrameI))

	size := int(out.BitstreamSize)
	if e.openParams.H264AUDEnabled && e.openParams.Format == codec.FormatH264 {
		size += len(audNALUnit)
	}
	if prepend {
		size += e.headerBytesLen()
	}

	e.encodedMeta = EncodedFrameMeta{
		Context:     e.staged.Context,
		PTS:         e.staged.PTS,
		DTS:         e.staged.DTS,
		FrameType:   frameType,
		IsSyncPoint: isSyncPoint(e.openParams.Format, frameType),
		EncodedSize: size,
	}
	e.encodedPrepend = prepend
	e.encodedBitstreamOffset = out.BitstreamBufferOffset
	e.encodedBitstreamSize = out.BitstreamSize
	e.hasEncoded = true
	e.staged = nil
	e.frameCounter++

	return OutputEncodedFrameAvailable, nil
}

func lookupPicType(p firmware.PicType) FrameType {
	switch p {
	case firmware.PicI, firmware.PicIDR:
		return FrameIDR
	default:
		return FrameP
	}
}

func isSyncPoint(format codec.Format, t FrameType) bool {
	if format == codec.FormatH264 {
		return t == FrameIDR
	}
	return t == FrameIDR || t == FrameI
}

// audNALUnit is the fixed 6-byte H.264 Access Unit Delimiter the
// library inserts manually so the AUD-SPS-PPS-VCL order is exact.
// firmware.OpenParams carries no AUD setting, so Open passes nothing that
// switches the firmware's own AUD insertion off.
var audNALUnit = []byte{0x00, 0x00, 0x00, 0x01, 0x09, 0xF0}

func (e *EncoderInstance) headerBytesLen() int {
	switch e.openParams.Format {
	case codec.FormatH264:
		return len(e.headers[firmware.HeaderSPS]) + len(e.headers[firmware.HeaderPPS])
	case codec.FormatMPEG4:
		return len(e.headers[firmware.HeaderVOS]) + len(e.headers[firmware.HeaderVIS]) + len(e.headers[firmware.HeaderVOL])
	case codec.FormatJPEG:
		return JFIFAPP0Size + len(e.headers[firmware.HeaderJPEG])
	default:
		return 0
	}
}

// waitForInterrupt mirrors decoder.DecoderInstance.waitForInterrupt for
// the encode direction.
func (e *EncoderInstance) waitForInterrupt(ctx context.Context) (bool, error) {
	for i := 0; i < firmware.MaxTimeouts; i++ {
		arrived, err := e.driver.WaitEncode(ctx, e.handle, firmware.WaitTimeout)
		if err != nil {
			return false, err
		}
		if arrived {
			return true, nil
		}
	}
	return false, nil
}
