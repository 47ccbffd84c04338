/*
DESCRIPTION
  decoder.go defines DecoderInstance, the types it owns, and the
  operations that don't belong to the normative decode() algorithm:
  open, push_encoded_frame, enable_drain_mode,
  set_output_frame_dma_buffer, flush and close.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package decoder implements the decoder state machine and ring
// bitstream buffer manager: codec-specific pre-stream rewriting, initial
// stream info discovery, framebuffer pool lifecycle, per-frame decode
// and drain/EOS handling.
//
// A DecoderInstance is not safe for concurrent use. Callers that push
// encoded frames from one goroutine while presenting decoded frames on
// another must serialize all calls on a DecoderInstance with their own
// sync.Mutex; the package does not do this for them.
package decoder

import (
	"context"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/detile"
	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
	"github.com/ausocean/vpu/vpulog"
)

// OutputCode is the decode() output code surfaced to the caller, reusing
// firmware's single (non-bitmask) output code enum since the decoder
// adds no output kind the firmware layer doesn't already distinguish.
type OutputCode = firmware.DecOutputCode

const (
	OutputNone                   = firmware.DecOutputNone
	OutputNewStreamInfoAvailable = firmware.DecOutputNewStreamInfoAvailable
	OutputMoreInputNeeded        = firmware.DecOutputMoreInputDataNeeded
	OutputFrameSkipped           = firmware.DecOutputFrameSkipped
	OutputDecodedFrameAvailable  = firmware.DecOutputDecodedFrameAvailable
	OutputEOS                    = firmware.DecOutputEOS
	OutputVideoParametersChanged = firmware.DecOutputVideoParametersChanged
)

// SlotMode is a FramePoolEntry's lifecycle state: Free →
// ReservedForDecoding → ContainsDisplayableFrame → Free. A slot cannot
// skip states forward (spec.md section 8, "slot mode monotonicity").
type SlotMode int

const (
	Free SlotMode = iota
	ReservedForDecoding
	ContainsDisplayableFrame
)

// FrameType classifies a decoded picture (or a field of one, for
// interlaced content), per spec.md section 4.4.2.
type FrameType int

const (
	FrameI FrameType = iota
	FrameP
	FrameB
	FrameBI
	FrameSkip
	FrameIDR
	FrameUnknown
)

// SkipReason explains why a FrameSkipped output was produced.
type SkipReason int

const (
	SkipCorruptedFrame SkipReason = iota
	SkipInternalFrame
)

// SkippedFrameRecord is retained on the instance across the single
// decode() call that produced it, for the caller to inspect.
type SkippedFrameRecord struct {
	Reason  SkipReason
	Context interface{}
	PTS, DTS int64
}

// EncodedFrame is what push_encoded_frame stages: payload bytes plus the
// caller's context/pts/dts, passed through the codec unchanged.
type EncodedFrame struct {
	Data      []byte
	FrameType FrameType
	PTS, DTS  int64
	Context   interface{}
	HasHeader bool
}

// FramePoolEntry is one pool slot.
type FramePoolEntry struct {
	Context         interface{}
	PTS, DTS        int64
	FrameTypes      [2]FrameType
	InterlacingMode int
	Mode            SlotMode
	FB              framebuffer.Framebuffer
}

// StreamInfo is the decoder's negotiated, stream-level info, filled in
// once the firmware (or, for JPEG, the stream munger) has observed
// enough of the bitstream.
type StreamInfo struct {
	ColorFormat                  framebuffer.ColorFormat
	Metrics                      framebuffer.Metrics
	MinFramebufferCount          int
	OutputFramebufferSize        uint
	OutputFramebufferAlign       uint
	FrameRateNum, FrameRateDenom uint
	Interlaced                   bool
	SemiPlanar                   bool
}

// RawFrame is what get_decoded_frame fills in from a displayable pool
// slot.
type RawFrame struct {
	FB              framebuffer.Framebuffer
	FrameTypes      [2]FrameType
	InterlacingMode int
	PTS, DTS        int64
	Context         interface{}
}

// OpenParams configures DecoderInstance.Open.
type OpenParams struct {
	Format           codec.Format
	Width, Height    uint
	ChromaInterleave bool
	ReorderEnable    bool
	ExtraHeaderData  []byte

	// FramebufferAlignment bounds plane-size alignment passed to
	// framebuffer.Compute once StreamInfo is known.
	FramebufferAlignment uint
}

// NUMExtraFramebuffers is added to the firmware's reported minimum pool
// size to compensate for firmware underreporting, per spec.md 4.5.
const NUMExtraFramebuffers = 4

// DecoderInstance drives one decode session end to end.
type DecoderInstance struct {
	driver  firmware.Driver
	handle  firmware.Handle
	detiler detile.Engine
	log     vpulog.Logger

	openParams OpenParams
	muncher    codec.Muncher

	streamBufDMA dma.Buffer
	streamBuf    []byte
	writeCursor  int

	mainHeaderPushed     bool
	initialInfoAvailable bool
	info                 StreamInfo

	pool                     []FramePoolEntry
	numFramebuffersToBeAdded int
	numUsed                  int

	staged *EncodedFrame

	drainEnabled bool
	drainEOSSent bool

	outputDMA     dma.Buffer
	outputContext interface{}

	jpegWidth, jpegHeight uint
	jpegSubsampling       string

	h264Width, h264Height uint
	h264SPSSeen           bool

	lastOutput        firmware.DecOutputInfo
	availableFrameIdx int
	skipped           *SkippedFrameRecord
}

// New constructs a DecoderInstance bound to driver (the firmware shim)
// and detiler (the external tiling engine). A nil detiler defaults to
// detile.LinearCopy{}, suitable for software-only deployments and tests.
func New(driver firmware.Driver, detiler detile.Engine, log vpulog.Logger) *DecoderInstance {
	if detiler == nil {
		detiler = detile.LinearCopy{}
	}
	if log == nil {
		log = vpulog.Discard()
	}
	return &DecoderInstance{driver: driver, detiler: detiler, log: log, availableFrameIdx: firmware.NoFrame}
}

// streamBufferScratchAllowance is a conservative lower bound: the spec requires
// main_bitstream_size + slice_buf_size + ps_save_size; this library does
// not itself compute slice/ps-save scratch sizes (those are firmware
// constants the real driver would report), so callers pass a
// main-bitstream allowance and this adds a fixed scratch allowance
// matching the firmware's worst case for the supported formats.
const streamBufferScratchAllowance = 4096

// Open verifies streamBuffer is large enough, maps it read/write/manual-
// sync, constructs this format's Muncher, and sets firmware parameters.
func (d *DecoderInstance) Open(ctx context.Context, params OpenParams, streamBuffer dma.Buffer, mainBitstreamSize int) error {
	required := mainBitstreamSize + streamBufferScratchAllowance
	if streamBuffer.Size() < required {
		return status.New(status.InsufficientStreamBufferSize)
	}

	m, err := codec.New(params.Format, params.ExtraHeaderData)
	if err != nil {
		return status.Wrap(status.UnsupportedCompressionFormat, err, "decoder: constructing muncher")
	}

	buf, err := streamBuffer.Map(dma.Read | dma.Write | dma.ManualSync)
	if err != nil {
		return status.Wrap(status.DmaMemoryAccessError, err, "decoder: mapping stream buffer")
	}

	mapType := 1
	bitstreamMode := 1
	jpegLineBuffer := false
	if params.Format == codec.FormatJPEG {
		mapType = 0
		jpegLineBuffer = true
	}

	fwParams := firmware.OpenParams{
		Format:             params.Format,
		Width:              params.Width,
		Height:             params.Height,
		ChromaInterleave:   params.ChromaInterleave,
		ReorderEnable:      params.ReorderEnable,
		MapType:            mapType,
		BitstreamMode:      bitstreamMode,
		JPEGLineBufferMode: jpegLineBuffer,
		ExtraHeaderData:    params.ExtraHeaderData,
	}

	h, err := d.driver.OpenDecoder(ctx, fwParams, buf)
	if err != nil {
		return status.Wrap(status.Error, err, "decoder: opening firmware decoder")
	}

	d.handle = h
	d.openParams = params
	d.muncher = m
	d.streamBufDMA = streamBuffer
	d.streamBuf = buf
	d.writeCursor = 0
	d.mainHeaderPushed = false
	d.initialInfoAvailable = false
	d.drainEnabled = false
	d.drainEOSSent = false
	d.pool = nil
	d.numUsed = 0
	d.availableFrameIdx = firmware.NoFrame
	d.jpegWidth, d.jpegHeight, d.jpegSubsampling = 0, 0, ""
	d.h264Width, d.h264Height, d.h264SPSSeen = 0, 0, false

	d.log.Info("decoder: opened format=%s %dx%d", params.Format, params.Width, params.Height)
	return nil
}

// PushEncodedFrame stages frame for the next Decode call. It is
// forbidden while drain is enabled or a frame is already staged (spec.md
// section 8, "staged uniqueness").
func (d *DecoderInstance) PushEncodedFrame(frame EncodedFrame) error {
	if d.drainEnabled {
		return status.New(status.InvalidCall)
	}
	if d.staged != nil {
		return status.New(status.InvalidCall)
	}

	info := codec.StreamInfo{Width: d.openParams.Width, Height: d.openParams.Height, ExtraHeader: d.openParams.ExtraHeaderData}
	prefix, err := d.muncher.SynthesizeFrame(info, frame.Data)
	if err != nil {
		return err
	}

	if err := d.writeRing(prefix); err != nil {
		return err
	}
	if err := d.writeRing(frame.Data); err != nil {
		return err
	}

	f := frame
	d.staged = &f
	d.mainHeaderPushed = true
	return nil
}

// writeRing copies b into the ring bitstream buffer starting at the
// write cursor, splitting into two memcpys when the write wraps past
// the end of the buffer (spec.md design note "ring buffer wrap-around").
func (d *DecoderInstance) writeRing(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if len(d.streamBuf) == 0 {
		return status.New(status.InvalidHandle)
	}
	n := len(d.streamBuf)
	pos := d.writeCursor % n

	first := b
	if pos+len(b) > n {
		first = b[:n-pos]
	}
	copy(d.streamBuf[pos:], first)
	if len(first) < len(b) {
		rest := b[len(first):]
		copy(d.streamBuf[0:], rest)
	}
	d.writeCursor = (d.writeCursor + len(b)) % n
	return nil
}

// EnableDrainMode marks the instance as draining; the next Decode call
// will notify the firmware with a zero-byte update.
func (d *DecoderInstance) EnableDrainMode() {
	d.drainEnabled = true
}

// SetOutputFrameDMABuffer records the caller-owned target for the next
// decoded frame.
func (d *DecoderInstance) SetOutputFrameDMABuffer(buf dma.Buffer, fbContext interface{}) {
	d.outputDMA = buf
	d.outputContext = fbContext
}

// SkippedFrame returns the most recent skipped-frame record, if the
// previous Decode call produced OutputFrameSkipped.
func (d *DecoderInstance) SkippedFrame() *SkippedFrameRecord { return d.skipped }

// StreamInfo returns the negotiated stream-level info most recently
// discovered, valid once a Decode call has reported
// OutputNewStreamInfoAvailable.
func (d *DecoderInstance) StreamInfo() StreamInfo { return d.info }

// Flush clears contexts for every pool slot, vacates
// ReservedForDecoding slots back to Free, and resets drain state and
// the JPEG shadow. The pool itself (slot count, DMA buffers) is
// retained.
func (d *DecoderInstance) Flush() error {
	for i := range d.pool {
		if d.pool[i].Mode != Free {
			if err := d.driver.ClearDisplayFlag(d.handle, i); err != nil {
				d.log.Warning("decoder: clearing display flag for slot %d: %v", i, err)
			}
		}
		d.pool[i] = FramePoolEntry{FB: d.pool[i].FB}
	}
	d.numUsed = 0
	d.staged = nil
	d.drainEnabled = false
	d.drainEOSSent = false
	d.jpegWidth, d.jpegHeight, d.jpegSubsampling = 0, 0, ""
	d.h264Width, d.h264Height, d.h264SPSSeen = 0, 0, false
	d.availableFrameIdx = firmware.NoFrame
	d.muncher.Reset()
	return nil
}

// Close flushes, signals EOS, closes the firmware handle, and unmaps
// the stream buffer. Teardown is best-effort: failures are logged, not
// returned, per spec.md section 7 ("on close with in-flight data...").
func (d *DecoderInstance) Close() {
	if err := d.Flush(); err != nil {
		d.log.Warning("decoder: flush during close: %v", err)
	}
	if err := d.driver.SignalEOS(d.handle); err != nil {
		d.log.Warning("decoder: signalling EOS during close: %v", err)
	}
	if err := d.driver.CloseDecoder(d.handle); err != nil {
		d.log.Warning("decoder: closing firmware handle: %v", err)
	}
	if d.streamBufDMA != nil {
		d.streamBufDMA.Unmap()
	}
	d.pool = nil
}
