package codec

// vc1StartCode is the 4-byte VC-1 frame start code (0x0000010D,
// most significant byte first on the wire) prepended when a frame's main
// data does not already begin with the VC-1 NAL start code.
var vc1StartCode = []byte{0x00, 0x00, 0x01, 0x0D}

// vc1NALPrefix is the 3-byte VC-1 NAL start code prefix main data is
// checked against.
var vc1NALPrefix = []byte{0x00, 0x00, 0x01}

// vc1Muncher pushes the stream's extra-header bytes (stripped of their
// length-prefix byte) ahead of the first frame, then ensures every frame
// begins with a VC-1 start code.
type vc1Muncher struct {
	extraHeader []byte
	sentExtra   bool
}

func (m *vc1Muncher) Reset() { m.sentExtra = false }

func (m *vc1Muncher) SynthesizeFrame(info StreamInfo, payload []byte) ([]byte, error) {
	var prefix []byte
	if !m.sentExtra {
		m.sentExtra = true
		if len(m.extraHeader) > 1 {
			// The leading byte is the extra header's own length
			// prefix; only the bytes after it are pushed.
			prefix = append(prefix, m.extraHeader[1:]...)
		}
	}

	if len(payload) < 3 || !hasPrefix(payload, vc1NALPrefix) {
		prefix = append(prefix, vc1StartCode...)
	}

	return prefix, nil
}

func (m *vc1Muncher) ParseFrame(payload []byte) (StreamInfo, error) {
	return StreamInfo{}, nil
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i, p := range prefix {
		if b[i] != p {
			return false
		}
	}
	return true
}
