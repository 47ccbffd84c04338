/*
DESCRIPTION
  defaultparams.go implements set_default_open_params and
  ParseFormatName, the string-name entry point for selecting a
  codec.Format from caller-facing configuration.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package vpu

import (
	"fmt"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/codec/codecutil"
	"github.com/ausocean/vpu/decoder"
	"github.com/ausocean/vpu/encoder"
	"github.com/ausocean/vpu/framebuffer"
)

// defaultBitrateKbps, defaultGOPSize, defaultFrameRNum and defaultFrameRDenom match
// spec.md 6's set_default_open_params literal values.
const (
	defaultBitrateKbps = 256
	defaultGOPSize     = 16
	defaultFrameRNum   = 25
	defaultFrameRDenom = 1
)

// validColorFormat reports whether colorFormat is one
// CompressionFormatSupportDetails lists for format.
func validColorFormat(format codec.Format, colorFormat framebuffer.ColorFormat) bool {
	for _, cf := range CompressionFormatSupportDetails(format).ColorFormats {
		if cf == colorFormat {
			return true
		}
	}
	return false
}

// DecoderDefaultOpenParams populates decoder.OpenParams with spec.md 6's
// defaults for format, colorFormat, width and height: frame reordering
// on, no extra header data. colorFormat is validated against
// CompressionFormatSupportDetails but otherwise not itself part of
// decoder.OpenParams — decode geometry and color format are negotiated
// from the bitstream itself (StreamInfo), not requested at open time.
// Per-format decoder defaults beyond these are unneeded (spec.md's
// per-format defaults are encoder-only: bitrate, GOP size, frame rate,
// MPEG-4 version, H.263 annex, H.264 AUD).
func DecoderDefaultOpenParams(format codec.Format, colorFormat framebuffer.ColorFormat, width, height uint) (decoder.OpenParams, error) {
	if !validColorFormat(format, colorFormat) {
		return decoder.OpenParams{}, fmt.Errorf("vpu: color format %s not supported for %s", colorFormat, format)
	}
	return decoder.OpenParams{
		Format:               format,
		Width:                width,
		Height:               height,
		ChromaInterleave:     false,
		ReorderEnable:        true,
		FramebufferAlignment: 4096,
	}, nil
}

// EncoderDefaultOpenParams populates encoder.OpenParams with spec.md 6's
// defaults: bitrate 256 kbps, gop_size 16, frame rate 25/1, and the
// named per-format defaults (H.264 AUD enabled; encoder.OpenParams has
// no profile field, so no H.264 profile is selected here; MPEG-4 and
// H.263 defaults are selected by the caller's
// ExtraHeaderData, which this library does not synthesize on the
// caller's behalf — see codec.Muncher). colorFormat must be YUV420,
// the only input chroma layout vpu/encoder currently supports.
func EncoderDefaultOpenParams(format codec.Format, colorFormat framebuffer.ColorFormat, width, height uint) (encoder.OpenParams, error) {
	if colorFormat != framebuffer.YUV420 {
		return encoder.OpenParams{}, fmt.Errorf("vpu: encoder only supports YUV420 input, got %s", colorFormat)
	}
	p := encoder.OpenParams{
		Format:               format,
		Width:                width,
		Height:               height,
		FramebufferAlignment: 4096,
		GOPSize:              defaultGOPSize,
		ClosedGOPInterval:    1,
		Bitrate:              defaultBitrateKbps,
		FrameRateNum:         defaultFrameRNum,
		FrameRateDenom:       defaultFrameRDenom,
	}
	if format == codec.FormatH264 {
		p.H264AUDEnabled = true
	}
	if format == codec.FormatJPEG {
		p.JPEGQuality = 75
	}
	return p, nil
}

// ParseFormatName maps a codec-name string (as used in caller-facing
// config, e.g. a revid.conf-style codec field) to the codec.Format this
// library understands, rejecting names codecutil recognizes but this
// library's firmware shim does not support (PCM/ADPCM/H265/MJPEG: audio
// codecs and H.265 are outside the component table's named codec list,
// see DESIGN.md).
func ParseFormatName(name string) (codec.Format, error) {
	if !codecutil.IsValid(name) {
		return 0, fmt.Errorf("vpu: unrecognized codec name %q", name)
	}
	switch name {
	case codecutil.H264, codecutil.H264_AU:
		return codec.FormatH264, nil
	case codecutil.JPEG:
		return codec.FormatJPEG, nil
	default:
		return 0, fmt.Errorf("vpu: codec %q is not supported by this library's firmware shim", name)
	}
}
