package encoder

import (
	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/status"
)

// GetEncodedFrame writes the most recently encoded frame into dst,
// which must be at least EncodedFrameMeta.EncodedSize bytes, and
// returns the number of bytes written plus the frame's metadata. The
// write order, per spec.md 4.7, is: the AUD (if enabled), the
// pre-generated/queried headers (if this frame prepends them), then
// the firmware bitstream payload.
func (e *EncoderInstance) GetEncodedFrame(dst []byte) (int, EncodedFrameMeta, error) {
	if !e.hasEncoded {
		return 0, EncodedFrameMeta{}, status.New(status.InvalidCall)
	}
	if len(dst) < e.encodedMeta.EncodedSize {
		return 0, EncodedFrameMeta{}, status.New(status.InvalidParams)
	}

	n := 0
	if e.openParams.H264AUDEnabled && e.openParams.Format == codec.FormatH264 {
		n += copy(dst[n:], audNALUnit)
	}

	if e.encodedPrepend {
		switch e.openParams.Format {
		case codec.FormatH264:
			n += copy(dst[n:], e.headers[firmware.HeaderSPS])
			n += copy(dst[n:], e.headers[firmware.HeaderPPS])
		case codec.FormatMPEG4:
			n += copy(dst[n:], e.headers[firmware.HeaderVOS])
			n += copy(dst[n:], e.headers[firmware.HeaderVIS])
			n += copy(dst[n:], e.headers[firmware.HeaderVOL])
		case codec.FormatJPEG:
			hdr := e.headers[firmware.HeaderJPEG]
			if len(hdr) >= 2 {
				n += copy(dst[n:], hdr[:2]) // SOI
				n += copy(dst[n:], buildJFIFAPP0())
				n += copy(dst[n:], hdr[2:])
			} else {
				n += copy(dst[n:], hdr)
			}
		}
	}

	off := int(e.encodedBitstreamOffset)
	size := int(e.encodedBitstreamSize)
	if off < 0 || off+size > len(e.streamBuf) {
		return 0, EncodedFrameMeta{}, status.New(status.Error)
	}
	n += copy(dst[n:], e.streamBuf[off:off+size])

	e.hasEncoded = false
	return n, e.encodedMeta, nil
}
