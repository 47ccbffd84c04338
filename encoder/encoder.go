/*
DESCRIPTION
  encoder.go defines EncoderInstance and its non-per-frame operations:
  open (including header pre-generation), add_framebuffers_to_pool,
  flush, set_bitrate and set_frame_rate.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package encoder implements the encoder state machine: per-format
// header pre-generation, per-frame submission and packaging, and
// forced-IDR closed-GOP emulation.
//
// An EncoderInstance is not safe for concurrent use. Callers driving
// frame submission and output draining from separate goroutines must
// serialize all calls on an EncoderInstance with their own sync.Mutex;
// the package does not do this for them.
package encoder

import (
	"context"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
	"github.com/ausocean/vpu/vpulog"
)

// FrameType mirrors decoder.FrameType; kept as a distinct type since the
// encoder's input (a RawFrame the caller wants encoded) and the
// decoder's output are different directions through the codec.
type FrameType int

const (
	FrameI FrameType = iota
	FrameP
	FrameIDR
	FrameUnknown
)

// OutputCode is the encode() output code.
type OutputCode = firmware.EncOutputCode

const (
	OutputEncodedFrameAvailable = firmware.EncOutputEncodedFrameAvailable
	OutputMoreInputNeeded       = firmware.EncOutputMoreInputDataNeeded
)

// RawFrame is what push_raw_frame stages.
type RawFrame struct {
	FB        framebuffer.Framebuffer
	FrameType FrameType
	PTS, DTS  int64
	Context   interface{}
}

// EncodedFrameMeta is the metadata recorded for the most recently
// encoded frame, read back via GetEncodedFrame.
type EncodedFrameMeta struct {
	Context     interface{}
	PTS, DTS    int64
	FrameType   FrameType
	IsSyncPoint bool
	EncodedSize int
}

// OpenParams configures EncoderInstance.Open.
type OpenParams struct {
	Format               codec.Format
	Width, Height        uint
	FramebufferAlignment uint
	GOPSize              int
	ClosedGOPInterval    int
	Bitrate              int // kbps; 0 disables rate control.
	FrameRateNum         uint
	FrameRateDenom       uint

	// H.264-specific.
	H264AUDEnabled bool

	// JPEG-specific.
	JPEGQuality int

	ExtraHeaderData []byte
}

// VPUEncNumExtraSubsampleFramebuffers is added to the encoder's internal
// framebuffer pool request for every format except JPEG, per spec.md 4.7.
const VPUEncNumExtraSubsampleFramebuffers = 2

// EncoderInstance drives one encode session end to end.
type EncoderInstance struct {
	driver firmware.Driver
	handle firmware.Handle
	log    vpulog.Logger

	openParams OpenParams

	streamBufDMA dma.Buffer
	streamBuf    []byte

	inputMetrics    framebuffer.Metrics
	internalMetrics framebuffer.Metrics

	pool                     []framebuffer.Framebuffer
	numFramebuffersToBeAdded int

	headers map[firmware.HeaderKind][]byte

	staged *RawFrame

	firstFrame         bool
	frameCounter       int
	rateControlEnabled bool
	intervalBetweenIDR int

	encodedMeta            EncodedFrameMeta
	encodedPrepend         bool
	encodedBitstreamOffset uint
	encodedBitstreamSize   uint
	hasEncoded             bool
}

// New constructs an EncoderInstance bound to driver.
func New(driver firmware.Driver, log vpulog.Logger) *EncoderInstance {
	if log == nil {
		log = vpulog.Discard()
	}
	return &EncoderInstance{driver: driver, log: log, headers: make(map[firmware.HeaderKind][]byte)}
}

const streamBufferScratchAllowance = 4096

// Open validates GOP size, maps the stream buffer, computes input and
// internal framebuffer geometry, populates firmware encode parameters,
// opens the firmware encoder, queries the minimum pool size, and
// pre-generates this format's headers.
func (e *EncoderInstance) Open(ctx context.Context, params OpenParams, streamBuffer dma.Buffer, mainBitstreamSize int) error {
	if params.GOPSize < 1 {
		return status.New(status.InvalidParams)
	}
	required := mainBitstreamSize + streamBufferScratchAllowance
	if streamBuffer.Size() < required {
		return status.New(status.InsufficientStreamBufferSize)
	}

	buf, err := streamBuffer.Map(dma.Read | dma.Write | dma.ManualSync)
	if err != nil {
		return status.Wrap(status.DmaMemoryAccessError, err, "encoder: mapping stream buffer")
	}

	// Input frames: width%8=0, height%2=0. Internal (reference)
	// framebuffers: width%16=0, height%16=0, per spec.md 4.7.
	e.inputMetrics = framebuffer.Compute(framebuffer.YUV420, alignDown8(params.Width), alignDown2(params.Height), 1, false, false)
	e.internalMetrics = framebuffer.Compute(framebuffer.YUV420, params.Width, params.Height, params.FramebufferAlignment, false, false)

	fwParams := firmware.OpenParams{
		Format:          params.Format,
		Width:           params.Width,
		Height:          params.Height,
		ExtraHeaderData: params.ExtraHeaderData,
	}
	h, err := e.driver.OpenEncoder(ctx, fwParams, buf)
	if err != nil {
		return status.Wrap(status.Error, err, "encoder: opening firmware encoder")
	}

	if params.Format == codec.FormatJPEG {
		if err := e.driver.SetJPEGTables(h, params.JPEGQuality, jpegRestartInterval); err != nil {
			return status.Wrap(status.Error, err, "encoder: setting JPEG tables")
		}
	}

	info, _, err := e.driver.QueryInitialInfo(h, false)
	if err != nil {
		return status.Wrap(status.Error, err, "encoder: querying initial info")
	}

	e.handle = h
	e.openParams = params
	e.streamBufDMA = streamBuffer
	e.streamBuf = buf
	e.firstFrame = true
	e.frameCounter = 0
	e.rateControlEnabled = params.Bitrate > 0
	e.staged = nil
	e.hasEncoded = false
	e.intervalBetweenIDR = params.GOPSize * params.ClosedGOPInterval

	extra := VPUEncNumExtraSubsampleFramebuffers
	if params.Format == codec.FormatJPEG {
		extra = 0
	}
	e.numFramebuffersToBeAdded = info.MinFramebufferCount + extra

	if params.Format != codec.FormatJPEG {
		if err := e.pregenerateHeaders(); err != nil {
			return err
		}
	}

	e.log.Info("encoder: opened format=%s %dx%d", params.Format, params.Width, params.Height)
	return nil
}

func alignDown8(v uint) uint { return (v / 8) * 8 }
func alignDown2(v uint) uint { return (v / 2) * 2 }

const jpegRestartInterval = 60

// pregenerateHeaders invokes the firmware to produce the format's
// container headers ahead of time: SPS/PPS for H.264, VOS/VIS/VOL for
// MPEG-4. JPEG headers are re-queried per frame (see encode.go).
func (e *EncoderInstance) pregenerateHeaders() error {
	var kinds []firmware.HeaderKind
	switch e.openParams.Format {
	case codec.FormatH264:
		kinds = []firmware.HeaderKind{firmware.HeaderSPS, firmware.HeaderPPS}
	case codec.FormatMPEG4:
		kinds = []firmware.HeaderKind{firmware.HeaderVOS, firmware.HeaderVIS, firmware.HeaderVOL}
	default:
		return nil
	}
	scratch := make([]byte, 256)
	for _, k := range kinds {
		n, err := e.driver.GenerateHeader(e.handle, k, scratch)
		if err != nil {
			return status.Wrap(status.Error, err, "encoder: generating header")
		}
		body := make([]byte, n)
		copy(body, scratch[:n])
		e.headers[k] = body
	}
	return nil
}

// NumFramebuffersToBeAdded returns how many internal framebuffers the
// firmware still expects registered.
func (e *EncoderInstance) NumFramebuffersToBeAdded() int { return e.numFramebuffersToBeAdded }

// AddFramebuffersToPool registers count-2 main slots with the firmware
// and reserves the final two as subsample scratch (the encoder's
// internal reference pool; JPEG skips this call entirely, per
// spec.md 4.7).
func (e *EncoderInstance) AddFramebuffersToPool(buffers []framebuffer.Framebuffer) error {
	if e.openParams.Format == codec.FormatJPEG {
		return status.New(status.InvalidCall)
	}
	if e.numFramebuffersToBeAdded <= 0 || len(buffers) < e.numFramebuffersToBeAdded {
		return status.New(status.InsufficientFramebuffers)
	}

	descriptors := make([]firmware.FramebufferDescriptor, len(buffers)-VPUEncNumExtraSubsampleFramebuffers)
	for i := range descriptors {
		descriptors[i] = referenceDescriptor(i, buffers[i])
	}
	if err := e.driver.RegisterFramebuffers(e.handle, descriptors); err != nil {
		return status.Wrap(status.Error, err, "encoder: registering framebuffers")
	}

	e.pool = buffers
	e.numFramebuffersToBeAdded = 0
	return nil
}

// referenceDescriptor builds the packed-pointer descriptor for one of
// the encoder's internal reference framebuffers, mirroring
// decoder.packedDescriptor.
func referenceDescriptor(index int, fb framebuffer.Framebuffer) firmware.FramebufferDescriptor {
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

func (e *EncoderInstance) poolReady() bool {
	return e.openParams.Format == codec.FormatJPEG || (e.numFramebuffersToBeAdded == 0 && len(e.pool) > 0)
}

// SetBitrate adjusts the encoder's target bitrate; rejected if rate
// control was disabled at open time.
func (e *EncoderInstance) SetBitrate(kbps int) error {
	if !e.rateControlEnabled {
		return status.New(status.InvalidCall)
	}
	return e.driver.SetBitrate(e.handle, kbps)
}

// SetFrameRate adjusts the encoder's frame rate ratio; den must be >= 1.
func (e *EncoderInstance) SetFrameRate(num, den uint) error {
	if den < 1 {
		return status.New(status.InvalidParams)
	}
	return e.driver.SetFrameRate(e.handle, num, den)
}

// Flush resets first_frame, clears staged and encoded-frame slots, and
// resets the frame counter.
func (e *EncoderInstance) Flush() {
	e.firstFrame = true
	e.staged = nil
	e.hasEncoded = false
	e.frameCounter = 0
}

// Close tears down the firmware encoder and unmaps the stream buffer.
func (e *EncoderInstance) Close() {
	if err := e.driver.CloseEncoder(e.handle); err != nil {
		e.log.Warning("encoder: closing firmware handle: %v", err)
	}
	if e.streamBufDMA != nil {
		e.streamBufDMA.Unmap()
	}
}
