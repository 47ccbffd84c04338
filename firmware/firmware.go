/*
DESCRIPTION
  firmware.go declares Driver, the interface standing in for the vpulib
  firmware shim: the one out-of-scope collaborator that actually starts
  and finishes frames, registers framebuffers, queries decode/encode
  output info, and drives the companion detiling engine. Everything in
  vpu/decoder and vpu/encoder is written against this interface; a real
  CGo binding to libimxvpuapi2 and the in-repo simulator
  (vpu/firmware/simulator) are both just implementations of it.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package firmware declares the boundary between this library and the
// vpulib firmware shim: a thin primitive set to start/finish a frame,
// register framebuffers, query output info, and drive a companion
// detiling engine. The firmware itself, the DMA allocator back-end, and
// the detiling engine are all out of scope for this module and are
// represented purely as interfaces (Driver here; dma.Allocator in
// vpu/dma; detile.Engine in vpu/detile).
package firmware

import (
	"context"
	"time"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/status"
)

// WaitTimeout and MaxTimeouts bound how long decode/encode block waiting
// for a firmware interrupt, per spec section 5 ("Suspension points").
const (
	WaitTimeout = 500 * time.Millisecond
	MaxTimeouts = 4
)

// DecOutputCode is the single (non-bitmask) output code the firmware
// reports after a decode attempt, matching imxvpuapi2's
// ImxVpuApiDecOutputCodes enum rather than the bitmask-based codes of
// the older v1 imxvpuapi (see DESIGN.md, "Open Questions resolved").
type DecOutputCode int

const (
	DecOutputNone DecOutputCode = iota
	DecOutputNewStreamInfoAvailable
	DecOutputMoreInputDataNeeded
	DecOutputFrameSkipped
	DecOutputDecodedFrameAvailable
	DecOutputEOS
	DecOutputVideoParametersChanged
)

// EncOutputCode mirrors DecOutputCode for the encode direction.
type EncOutputCode int

const (
	EncOutputNone EncOutputCode = iota
	EncOutputEncodedFrameAvailable
	EncOutputMoreInputDataNeeded
)

// PicType is the firmware's coarse per-field picture-type classification,
// consumed by the frame-type derivation rules in decoder.deriveFrameTypes
// and encoder header packaging.
type PicType int

const (
	PicI PicType = iota
	PicP
	PicB
	PicBI
	PicSkip
	PicIDR
	PicUnknown
)

// OpenParams carries everything the firmware needs to open a decoder or
// encoder instance: the compression format, picture geometry, and the
// flags spec.md 4.4.1's open() sets on the firmware (chroma interleave,
// frame reordering, map type, bitstream mode, JPEG line-buffer mode).
type OpenParams struct {
	Format           codec.Format
	Width, Height    uint
	ChromaInterleave bool
	ReorderEnable    bool
	// MapType is 1 for all formats except JPEG, where it is 0, per
	// spec.md 4.4 open().
	MapType int
	// BitstreamMode is always 1 (the core never uses the firmware's
	// pull-mode bitstream feeding).
	BitstreamMode int
	// JPEGLineBufferMode enables the firmware's reduced-memory JPEG
	// decode path.
	JPEGLineBufferMode bool

	ExtraHeaderData []byte
}

// InitialStreamInfo is what the firmware reports once it has seen enough
// of the bitstream to know picture geometry and pool requirements.
type InitialStreamInfo struct {
	ColorFormat              int // framebuffer.ColorFormat, kept as int to avoid an import cycle; decoder converts.
	Width, Height            uint
	MinFramebufferCount      int
	FramebufferAlignment     uint
	OutputFramebufferSize    uint
	OutputFramebufferAlign   uint
	FrameRateNum, FrameRateD uint
	Interlaced               bool
	SemiPlanar               bool
}

// FramebufferDescriptor is the packed-pointer framebuffer descriptor the
// firmware expects when registering pool slots (spec.md 4.5): physical
// addresses for the Y, Cb/Cr and motion-vector-colocation planes, plus
// the caller-opaque index used to correlate it back to a FramePoolEntry.
type FramebufferDescriptor struct {
	Index         int
	YPhysAddr     uintptr
	CbPhysAddr    uintptr
	CrPhysAddr    uintptr
	MvColPhysAddr uintptr
}

// DecOutputInfo is what the firmware reports after a decode attempt: the
// pool slot indices for the frame just decoded and the frame now
// displayable (either may be a sentinel, see NoFrame/AllDecoded/
// AllDisplayed), the pic type of each field, interlacing mode, and
// whether the bitstream reported corruption or a video-parameter change.
type DecOutputInfo struct {
	IndexFrameDecoded  int
	IndexFrameDisplay  int
	PicType            [2]PicType
	IDRFlag            bool
	Interlaced         bool
	FrameCorrupted     bool
	VideoParamsChanged bool
	// InternalFrame is set for a firmware-internal frame (JPEG/VP8) that
	// carries no displayable output.
	InternalFrame bool
}

// Sentinel pool-slot index values reported in DecOutputInfo, per
// spec.md 4.4.1.
const (
	NoFrame      = -1
	AllDecoded   = -2
	AllDisplayed = -3
	// SkipModeNoFrame is reported by some firmware builds in place of
	// NoFrame when the decoder is running in skip mode.
	SkipModeNoFrame = -4
)

// EncOutputInfo is what the firmware reports after an encode attempt.
type EncOutputInfo struct {
	BitstreamBufferOffset uint
	BitstreamSize         uint
	PicType               PicType
}

// Driver is the firmware shim boundary. A real implementation binds to
// libimxvpuapi2 via CGo; vpu/firmware/simulator provides a software
// stand-in for tests.
type Driver interface {
	// OpenDecoder/OpenEncoder open a firmware instance over a mapped
	// stream buffer, returning an opaque handle threaded through every
	// subsequent call.
	OpenDecoder(ctx context.Context, params OpenParams, streamBuffer []byte) (Handle, error)
	OpenEncoder(ctx context.Context, params OpenParams, streamBuffer []byte) (Handle, error)
	CloseDecoder(h Handle) error
	CloseEncoder(h Handle) error

	// QueryInitialInfo requests stream info discovery, tolerating
	// insufficient data via escape when escape is true (spec.md 4.4.1:
	// "request initial info from firmware (with escape flag...)").
	QueryInitialInfo(h Handle, escape bool) (InitialStreamInfo, status.Code, error)

	// RegisterFramebuffers registers pool slot descriptors with the
	// firmware; called exactly once per NewStreamInfoAvailable event.
	RegisterFramebuffers(h Handle, descriptors []FramebufferDescriptor) error

	// StartDecodeFrame submits the currently-staged bitstream chunk
	// (already copied into the stream buffer by the caller) and the
	// output framebuffer to decode into.
	StartDecodeFrame(h Handle, outputFB FramebufferDescriptor) (status.FirmwareCode, error)

	// WaitDecode blocks for a firmware interrupt up to WaitTimeout,
	// returning whether one arrived before the deadline.
	WaitDecode(ctx context.Context, h Handle, timeout time.Duration) (arrived bool, err error)

	// DrainDecodeOutput reads back the firmware's decode output record.
	DrainDecodeOutput(h Handle) (DecOutputInfo, error)

	// SignalEOS notifies the firmware of drain (a zero-byte update),
	// per spec.md 4.4.1's drain handling.
	SignalEOS(h Handle) error

	// ClearDisplayFlag vacates a ReservedForDecoding/displayable slot
	// back to Free in the firmware's own bookkeeping.
	ClearDisplayFlag(h Handle, index int) error

	// StartEncodeFrame submits a raw source framebuffer for encoding,
	// forcing an I/IDR picture when forceIPicture is set.
	StartEncodeFrame(h Handle, src FramebufferDescriptor, forceIPicture bool) (status.FirmwareCode, error)

	// WaitEncode mirrors WaitDecode for the encode direction.
	WaitEncode(ctx context.Context, h Handle, timeout time.Duration) (arrived bool, err error)

	// DrainEncodeOutput reads back the firmware's encode output record.
	DrainEncodeOutput(h Handle) (EncOutputInfo, error)

	// GenerateHeader asks the firmware to produce a codec-specific
	// header blob (SPS/PPS for H.264, VOS/VIS/VOL for MPEG-4, a JPEG
	// header for JPEG) into the caller-provided scratch buffer,
	// returning the number of bytes written.
	GenerateHeader(h Handle, kind HeaderKind, scratch []byte) (int, error)

	// SetJPEGTables configures the firmware's Huffman/quantization
	// tables ahead of JPEG encoding.
	SetJPEGTables(h Handle, quality int, restartInterval int) error

	// SetBitrate and SetFrameRate adjust encoder runtime parameters;
	// SetBitrate fails if rate control was disabled at open time.
	SetBitrate(h Handle, kbps int) error
	SetFrameRate(h Handle, num, den uint) error
}

// Handle is an opaque firmware instance handle.
type Handle interface{}

// HeaderKind identifies which pre-generated header GenerateHeader should
// produce.
type HeaderKind int

const (
	HeaderSPS HeaderKind = iota
	HeaderPPS
	HeaderVOS
	HeaderVIS
	HeaderVOL
	HeaderJPEG
)
