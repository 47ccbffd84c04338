package codec

// ExtraHeaderPusher implements the "all other formats" rule: extra
// header data, if any, is pushed verbatim exactly once, before the first
// frame. This covers H.264, MPEG-2, MPEG-4 and H.263, none of which need
// container synthesis at this layer — their own Annex-B/start-code
// framing (or lack thereof) is carried entirely in extra_header_data and
// the frame payloads themselves. Named rather than left as an unnamed
// default case, so every format has an explicit Muncher.
type ExtraHeaderPusher struct {
	extraHeader []byte
	sent        bool
}

func (m *ExtraHeaderPusher) Reset() { m.sent = false }

func (m *ExtraHeaderPusher) SynthesizeFrame(info StreamInfo, payload []byte) ([]byte, error) {
	if m.sent {
		return nil, nil
	}
	m.sent = true
	if len(m.extraHeader) == 0 {
		return nil, nil
	}
	out := make([]byte, len(m.extraHeader))
	copy(out, m.extraHeader)
	return out, nil
}

func (m *ExtraHeaderPusher) ParseFrame(payload []byte) (StreamInfo, error) {
	return StreamInfo{}, nil
}
