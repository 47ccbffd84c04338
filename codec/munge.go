/*
DESCRIPTION
  munge.go defines the Muncher interface, the one piece of format-specific
  code on the decode path: container header synthesis for WMV3/VC-1/VP8
  and stream-info extraction for JPEG.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package codec holds the per-compression-format stream munger: the
// Muncher interface and one implementation per format, replacing what
// would otherwise be a switch on a format tag scattered through the
// decoder (see vpu/decoder, which calls only through this interface).
package codec

// Format identifies a compressed video format understood by the decoder
// and encoder state machines.
type Format int

const (
	FormatH264 Format = iota
	FormatMPEG4
	FormatMPEG2
	FormatH263
	FormatWMV3
	FormatVC1
	FormatVP8
	FormatJPEG
)

func (f Format) String() string {
	switch f {
	case FormatH264:
		return "H.264"
	case FormatMPEG4:
		return "MPEG-4"
	case FormatMPEG2:
		return "MPEG-2"
	case FormatH263:
		return "H.263"
	case FormatWMV3:
		return "WMV3"
	case FormatVC1:
		return "VC-1"
	case FormatVP8:
		return "VP8"
	case FormatJPEG:
		return "JPEG"
	default:
		return "unknown format"
	}
}

// StreamInfo carries the sequence-level data a Muncher needs to
// synthesize container headers, and the data a Muncher may have parsed
// back out of a frame (JPEG only).
type StreamInfo struct {
	Width, Height uint
	ExtraHeader   []byte

	// ChromaSubsampling is filled in by Muncher.ParseFrame for formats
	// that carry their own dimensions/subsampling inline (JPEG); it is
	// the zero value for formats that don't.
	ChromaSubsampling string
}

// Muncher is the one sum type covering every format-specific behaviour
// on the decode path: header synthesis ahead of the firmware-bound
// bitstream, and (JPEG only) parsing stream info back out of frame data
// to detect a mid-stream format change.
type Muncher interface {
	// Reset clears any "have I seen the first frame yet" state, called
	// from DecoderInstance.Flush (Open constructs a fresh Muncher instead).
	Reset()

	// SynthesizeFrame returns the bytes that must be written to the
	// ring bitstream buffer ahead of payload for this frame: a
	// container header (possibly empty after the first frame) followed
	// conceptually by payload itself, though payload is not touched or
	// copied here — callers append it separately so the ring-buffer
	// wraparound logic in vpu/decoder still applies to the whole
	// write in two memcpys.
	SynthesizeFrame(info StreamInfo, payload []byte) (prefix []byte, err error)

	// ParseFrame inspects payload (already-staged frame data, before
	// any SynthesizeFrame prefix) for stream info a decoder might need
	// to detect a format change. Formats that carry no inline stream
	// info return the zero StreamInfo and a nil error.
	ParseFrame(payload []byte) (StreamInfo, error)
}

// New returns the Muncher for format, seeded with the stream's static
// extra-header bytes (the open_params.extra_header_data the caller
// supplied to DecoderInstance.open).
func New(format Format, extraHeader []byte) (Muncher, error) {
	switch format {
	case FormatWMV3:
		return &wmv3Muncher{extraHeader: extraHeader}, nil
	case FormatVC1:
		return &vc1Muncher{extraHeader: extraHeader}, nil
	case FormatVP8:
		return &vp8Muncher{}, nil
	case FormatJPEG:
		return &jpegMuncher{}, nil
	default:
		return &ExtraHeaderPusher{extraHeader: extraHeader}, nil
	}
}
