package codec

import "encoding/binary"

// IVF constants, from spec section 6 ("VP8 IVF sequence/frame headers").
const (
	ivfSeqHeaderLen   = 32
	ivfFrameHeaderLen = 12
)

var ivfFourCC = [4]byte{'V', 'P', '8', '0'}
var ivfSignature = [4]byte{'D', 'K', 'I', 'F'}

// vp8Muncher synthesizes an IVF sequence header once, then a 12-byte IVF
// frame header before every frame.
type vp8Muncher struct {
	sentSeqHdr bool
}

func (m *vp8Muncher) Reset() { m.sentSeqHdr = false }

func (m *vp8Muncher) SynthesizeFrame(info StreamInfo, payload []byte) ([]byte, error) {
	frameHdr := make([]byte, ivfFrameHeaderLen)
	binary.LittleEndian.PutUint32(frameHdr[0:4], uint32(len(payload)))
	// Bytes 4:12 (timestamp) are left zero.

	if m.sentSeqHdr {
		return frameHdr, nil
	}
	m.sentSeqHdr = true

	seqHdr := make([]byte, ivfSeqHeaderLen)
	copy(seqHdr[0:4], ivfSignature[:])
	binary.LittleEndian.PutUint16(seqHdr[4:6], 0) // version
	binary.LittleEndian.PutUint16(seqHdr[6:8], ivfSeqHeaderLen)
	copy(seqHdr[8:12], ivfFourCC[:])
	binary.LittleEndian.PutUint16(seqHdr[12:14], uint16(info.Width))
	binary.LittleEndian.PutUint16(seqHdr[14:16], uint16(info.Height))
	binary.LittleEndian.PutUint32(seqHdr[16:20], 1) // fps_num
	binary.LittleEndian.PutUint32(seqHdr[20:24], 1) // fps_den
	binary.LittleEndian.PutUint32(seqHdr[24:28], 0) // num_frames
	binary.LittleEndian.PutUint32(seqHdr[28:32], 0) // reserved

	return append(seqHdr, frameHdr...), nil
}

func (m *vp8Muncher) ParseFrame(payload []byte) (StreamInfo, error) {
	return StreamInfo{}, nil
}
