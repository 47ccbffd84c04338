package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ausocean/vpu/codec/codecutil"
)

// jpeg SOF marker family: baseline, extended sequential, progressive. Any
// of these carries the width/height/component-sampling fields we need.
var jpegSOFMarkers = map[byte]bool{
	0xC0: true, 0xC1: true, 0xC2: true, 0xC3: true,
}

const jpegMarkerPrefix = 0xFF

var errNoSOFMarker = errors.New("codec: no SOF marker found in JPEG frame")

// jpegMuncher has no container bytes to synthesize; its job is parsing
// each frame's SOF segment to extract width, height and chroma
// subsampling, so the decoder can detect a format change mid-stream.
type jpegMuncher struct{}

func (m *jpegMuncher) Reset() {}

func (m *jpegMuncher) SynthesizeFrame(info StreamInfo, payload []byte) ([]byte, error) {
	return nil, nil
}

// ParseFrame scans payload for a Start-Of-Frame marker using
// codecutil.ByteScanner (the same scan-for-delimiter primitive the
// teacher's RTP/JPEG depacketizer uses to walk a byte stream), and
// extracts width, height and a coarse chroma-subsampling label from the
// first frame component's sampling factors.
func (m *jpegMuncher) ParseFrame(payload []byte) (StreamInfo, error) {
	sc := codecutil.NewByteScanner(bytes.NewReader(payload), make([]byte, 4096))
	for {
		_, last, err := sc.ScanUntil(nil, jpegMarkerPrefix)
		if err != nil {
			return StreamInfo{}, errNoSOFMarker
		}
		if last != jpegMarkerPrefix {
			return StreamInfo{}, errNoSOFMarker
		}
		marker, err := sc.ReadByte()
		if err != nil {
			return StreamInfo{}, errNoSOFMarker
		}
		if !jpegSOFMarkers[marker] {
			continue
		}

		var hdr [7]byte
		for i := range hdr {
			b, err := sc.ReadByte()
			if err != nil {
				return StreamInfo{}, errors.Wrap(err, "codec: truncated JPEG SOF segment")
			}
			hdr[i] = b
		}
		// hdr layout: u16 length | u8 precision | u16 height | u16 width,
		// followed by component count and per-component sampling
		// factors, which we don't need at frame granularity beyond a
		// coarse 4:2:0/4:2:2/4:4:4 label derived from the first
		// component.
		height := binary.BigEndian.Uint16(hdr[3:5])
		width := binary.BigEndian.Uint16(hdr[5:7])

		numComponents, err := sc.ReadByte()
		if err != nil {
			return StreamInfo{}, errors.Wrap(err, "codec: truncated JPEG SOF segment")
		}
		subsampling := "4:4:4"
		if numComponents > 0 {
			// Skip component ID, read sampling factors byte.
			if _, err := sc.ReadByte(); err != nil {
				return StreamInfo{}, errors.Wrap(err, "codec: truncated JPEG SOF component")
			}
			sampling, err := sc.ReadByte()
			if err != nil {
				return StreamInfo{}, errors.Wrap(err, "codec: truncated JPEG SOF component")
			}
			h, v := sampling>>4, sampling&0x0F
			switch {
			case h == 2 && v == 2:
				subsampling = "4:2:0"
			case h == 2 && v == 1:
				subsampling = "4:2:2"
			case h == 1 && v == 1:
				subsampling = "4:4:4"
			default:
				subsampling = fmt.Sprintf("%dx%d", h, v)
			}
		}

		return StreamInfo{
			Width:             uint(width),
			Height:            uint(height),
			ChromaSubsampling: subsampling,
		}, nil
	}
}
