/*
DESCRIPTION
  vpu.go implements the package's process-wide state: reference-counted
  firmware load/unload, the static global-info and per-format
  support-detail queries, and set_default_open_params.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vpu is the library's top-level entry point: process-wide
// firmware load/unload reference counting, static hardware capability
// queries, and default open-parameter construction, on top of
// vpu/decoder, vpu/encoder, vpu/firmware and vpu/jpegfacade.
package vpu

import (
	"sync"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/framebuffer"
)

// Version is this module's own semantic version, reported by GlobalInfo
// for diagnostic logging alongside the hardware tag, the way real
// deployments log library versions next to hardware identifiers.
const Version = "1.0.0"

// HardwareTag identifies the VPU hardware family this library targets.
const HardwareTag = "imx6-coda960"

var (
	decMu    sync.Mutex
	decCount int

	encMu    sync.Mutex
	encCount int
)

// LoadDecoder increments the process-wide decoder reference count,
// initializing the firmware's decoder subsystem on the 0→1 transition.
// initFunc is invoked only on that transition and only when non-nil
// (nil is valid for the software-only simulator, which needs no global
// init).
func LoadDecoder(initFunc func() error) error {
	decMu.Lock()
	defer decMu.Unlock()
	if decCount == 0 && initFunc != nil {
		if err := initFunc(); err != nil {
			return err
		}
	}
	decCount++
	return nil
}

// UnloadDecoder decrements the reference count, deinitializing on the
// 1→0 transition. An unbalanced call (count already 0) is a no-op that
// returns nil, per spec.md 4.10: "unbalanced unload returns OK without
// deinitializing".
func UnloadDecoder(deinitFunc func() error) error {
	decMu.Lock()
	defer decMu.Unlock()
	if decCount == 0 {
		return nil
	}
	decCount--
	if decCount == 0 && deinitFunc != nil {
		return deinitFunc()
	}
	return nil
}

// LoadEncoder mirrors LoadDecoder for the independent encoder reference
// count (spec.md 4.10: "two independent counters, mirroring
// imx_vpu_dec_load/imx_vpu_enc_load being independently reference
// counted in the original C").
func LoadEncoder(initFunc func() error) error {
	encMu.Lock()
	defer encMu.Unlock()
	if encCount == 0 && initFunc != nil {
		if err := initFunc(); err != nil {
			return err
		}
	}
	encCount++
	return nil
}

// UnloadEncoder mirrors UnloadDecoder for the encoder reference count.
func UnloadEncoder(deinitFunc func() error) error {
	encMu.Lock()
	defer encMu.Unlock()
	if encCount == 0 {
		return nil
	}
	encCount--
	if encCount == 0 && deinitFunc != nil {
		return deinitFunc()
	}
	return nil
}

// DecoderLoadCount and EncoderLoadCount expose the current reference
// counts, for diagnostics and tests.
func DecoderLoadCount() int {
	decMu.Lock()
	defer decMu.Unlock()
	return decCount
}

func EncoderLoadCount() int {
	encMu.Lock()
	defer encMu.Unlock()
	return encCount
}

// GlobalInfo is the common shape of DecGlobalInfo/EncGlobalInfo: static
// capability flags and sizing constraints that hold regardless of the
// compression format in use.
type GlobalInfo struct {
	Version               string
	HardwareTag           string
	MinStreamBufferSize   int
	StreamBufferPhysAlign uintptr
	StreamBufferSizeAlign int
	SupportedFormats      []codec.Format
}

// minStreamBufferSize is a conservative lower bound matching the scratch
// allowance vpu/decoder and vpu/encoder add to a caller's requested
// main-bitstream size (see streamBufferScratchAllowance in both
// packages).
const minStreamBufferSize = 4096

// supportedFormats lists every codec.Format this library's firmware
// shim can open, in the order spec.md's component table names them.
var supportedFormats = []codec.Format{
	codec.FormatH264,
	codec.FormatMPEG4,
	codec.FormatMPEG2,
	codec.FormatH263,
	codec.FormatWMV3,
	codec.FormatVC1,
	codec.FormatVP8,
	codec.FormatJPEG,
}

// DecGlobalInfo returns static decoder capability information: flags,
// hardware tag, the minimum stream-buffer size, required alignments, and
// the list of supported compression formats.
func DecGlobalInfo() GlobalInfo {
	return GlobalInfo{
		Version:               Version,
		HardwareTag:           HardwareTag,
		MinStreamBufferSize:   minStreamBufferSize,
		StreamBufferPhysAlign: 4096,
		StreamBufferSizeAlign: 4096,
		SupportedFormats:      supportedFormats,
	}
}

// EncGlobalInfo mirrors DecGlobalInfo for the encode direction; the
// encoder's firmware shim supports the same format set.
func EncGlobalInfo() GlobalInfo {
	return DecGlobalInfo()
}

// FormatSupportDetails is per-format bounds and capability detail, per
// spec.md 6's CompressionFormatSupportDetails.
type FormatSupportDetails struct {
	MinWidth, MinHeight uint
	MaxWidth, MaxHeight uint
	ColorFormats        []framebuffer.ColorFormat

	// MinQuality/MaxQuality bound JPEG quantization quality; zero for
	// non-JPEG formats.
	MinQuality, MaxQuality int

	// H264MaxLevel is indexed by H.264 profile_idc; absent for other
	// formats. Constrained-baseline streams use profile_idc 66.
	H264MaxLevel map[int]int

	// VP8SupportedProfilesMask is a bitmask of supported VP8 profile
	// numbers (bit i set means profile i is supported); zero for other
	// formats.
	VP8SupportedProfilesMask uint
}

// minJPEGQuality and maxJPEGQuality are the JPEG quality bounds reported
// by CompressionFormatSupportDetails. scaleQuantTable
// (firmware/simulator/jpegtables.go) itself clamps quality to [1,100].
const (
	minJPEGQuality = 1
	maxJPEGQuality = 99
)

// CompressionFormatSupportDetails returns per-format bounds: min/max
// width/height, supported color formats, quantization range, and (for
// H.264/VP8) the profile/level or profile-mask detail spec.md 6 names.
func CompressionFormatSupportDetails(format codec.Format) FormatSupportDetails {
	d := FormatSupportDetails{
		MinWidth:  8,
		MinHeight: 8,
		MaxWidth:  1920,
		MaxHeight: 1088,
	}
	switch format {
	case codec.FormatJPEG:
		d.ColorFormats = []framebuffer.ColorFormat{framebuffer.YUV420, framebuffer.YUV422Horizontal, framebuffer.YUV444, framebuffer.YUV400}
		d.MinQuality, d.MaxQuality = minJPEGQuality, maxJPEGQuality
	case codec.FormatH264:
		d.ColorFormats = []framebuffer.ColorFormat{framebuffer.YUV420}
		// profile_idc 66 (constrained baseline) through 100 (high).
		d.H264MaxLevel = map[int]int{66: 41, 77: 41, 100: 51}
	case codec.FormatVP8:
		d.ColorFormats = []framebuffer.ColorFormat{framebuffer.YUV420}
		d.VP8SupportedProfilesMask = 0x0F // profiles 0-3
	default:
		d.ColorFormats = []framebuffer.ColorFormat{framebuffer.YUV420}
	}
	return d
}
