package codec

import (
	"encoding/binary"

	"github.com/ausocean/vpu/status"
)

// wmv3 RCV container constants, from spec section 6.
const (
	wmv3StructC        = uint32(0xC5)<<24 | 0x00FFFFFF
	wmv3SeqHeaderLen   = 24
	wmv3FrameHeaderLen = 4
	wmv3ExtHeaderLen   = 4
)

// wmv3Muncher synthesizes an RCV sequence-layer header ahead of the first
// WMV3 frame, and a 4-byte frame-layer header ahead of every frame
// thereafter.
type wmv3Muncher struct {
	extraHeader []byte
	sentSeqHdr  bool
}

func (m *wmv3Muncher) Reset() { m.sentSeqHdr = false }

func (m *wmv3Muncher) SynthesizeFrame(info StreamInfo, payload []byte) ([]byte, error) {
	if len(m.extraHeader) < wmv3ExtHeaderLen {
		return nil, status.New(status.InvalidExtraHeaderData)
	}

	if m.sentSeqHdr {
		frameHdr := make([]byte, wmv3FrameHeaderLen)
		binary.LittleEndian.PutUint32(frameHdr, uint32(len(payload)))
		return frameHdr, nil
	}
	m.sentSeqHdr = true

	seqHdr := make([]byte, wmv3SeqHeaderLen)
	binary.LittleEndian.PutUint32(seqHdr[0:4], wmv3StructC)
	binary.LittleEndian.PutUint32(seqHdr[4:8], wmv3ExtHeaderLen)
	copy(seqHdr[8:12], m.extraHeader[:wmv3ExtHeaderLen])
	binary.LittleEndian.PutUint32(seqHdr[12:16], uint32(info.Width))
	binary.LittleEndian.PutUint32(seqHdr[16:20], uint32(info.Height))
	binary.LittleEndian.PutUint32(seqHdr[20:24], uint32(len(payload)))

	// The sequence header's last field already carries this frame's
	// main-data size; real firmware expects no frame-layer header ahead
	// of the main data until the second frame.
	return seqHdr, nil
}

func (m *wmv3Muncher) ParseFrame(payload []byte) (StreamInfo, error) {
	return StreamInfo{}, nil
}
