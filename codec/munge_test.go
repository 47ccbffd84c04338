package codec

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWMV3FirstFrameHeaders(t *testing.T) {
	m, err := New(FormatWMV3, []byte{0xAA, 0xBB, 0xCC, 0xDD})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload := make([]byte, 300)

	prefix, err := m.SynthesizeFrame(StreamInfo{Width: 640, Height: 480}, payload)
	if err != nil {
		t.Fatalf("SynthesizeFrame: %v", err)
	}
	if len(prefix) != wmv3SeqHeaderLen {
		t.Fatalf("prefix length = %d, want %d", len(prefix), wmv3SeqHeaderLen)
	}

	wantStructC := []byte{0xFF, 0xFF, 0xFF, 0xC5}
	if !bytes.Equal(prefix[0:4], wantStructC) {
		t.Errorf("structC bytes = % X, want % X", prefix[0:4], wantStructC)
	}
	if !bytes.Equal(prefix[8:12], []byte{0xAA, 0xBB, 0xCC, 0xDD}) {
		t.Errorf("extra header bytes = % X, want AA BB CC DD", prefix[8:12])
	}
	wantMainDataSize := []byte{0x2C, 0x01, 0x00, 0x00} // 300, little-endian
	if !bytes.Equal(prefix[20:24], wantMainDataSize) {
		t.Errorf("main-data size bytes = % X, want % X (300)", prefix[20:24], wantMainDataSize)
	}

	// Second frame: only the 4-byte frame header, no sequence header.
	prefix2, err := m.SynthesizeFrame(StreamInfo{Width: 640, Height: 480}, payload)
	if err != nil {
		t.Fatalf("SynthesizeFrame (2nd frame): %v", err)
	}
	if len(prefix2) != wmv3FrameHeaderLen {
		t.Errorf("second frame prefix length = %d, want %d", len(prefix2), wmv3FrameHeaderLen)
	}
}

func TestWMV3RejectsShortExtraHeader(t *testing.T) {
	m, _ := New(FormatWMV3, []byte{0xAA})
	_, err := m.SynthesizeFrame(StreamInfo{Width: 640, Height: 480}, make([]byte, 10))
	if err == nil {
		t.Fatal("expected error for short extra header data")
	}
}

func TestVP8IVFHeaders(t *testing.T) {
	m, _ := New(FormatVP8, nil)
	payload := make([]byte, 1000)

	prefix, err := m.SynthesizeFrame(StreamInfo{Width: 1280, Height: 720}, payload)
	if err != nil {
		t.Fatalf("SynthesizeFrame: %v", err)
	}
	if len(prefix) != ivfSeqHeaderLen+ivfFrameHeaderLen {
		t.Fatalf("prefix length = %d, want %d", len(prefix), ivfSeqHeaderLen+ivfFrameHeaderLen)
	}
	if string(prefix[0:4]) != "DKIF" || string(prefix[8:12]) != "VP80" {
		t.Errorf("IVF signature/FourCC wrong: % X", prefix[0:12])
	}

	prefix2, _ := m.SynthesizeFrame(StreamInfo{Width: 1280, Height: 720}, payload)
	if len(prefix2) != ivfFrameHeaderLen {
		t.Errorf("second frame prefix length = %d, want %d", len(prefix2), ivfFrameHeaderLen)
	}
}

func TestVC1StartCodeInsertedOnlyWhenMissing(t *testing.T) {
	m, _ := New(FormatVC1, []byte{0x02, 0xAA, 0xBB})
	prefix, err := m.SynthesizeFrame(StreamInfo{}, []byte{0x00, 0x00, 0x01, 0x1B})
	if err != nil {
		t.Fatalf("SynthesizeFrame: %v", err)
	}
	if !bytes.Equal(prefix, []byte{0xAA, 0xBB}) {
		t.Errorf("first-frame prefix = % X, want extra header only (AA BB), no start code since payload already has one", prefix)
	}

	m2, _ := New(FormatVC1, nil)
	prefix2, _ := m2.SynthesizeFrame(StreamInfo{}, []byte{0x01, 0x02, 0x03})
	if !bytes.Equal(prefix2, []byte{0x00, 0x00, 0x01, 0x0D}) {
		t.Errorf("prefix = % X, want start code inserted", prefix2)
	}
}

func TestJPEGParseFrameExtractsDimensions(t *testing.T) {
	m, _ := New(FormatJPEG, nil)
	frame := buildMinimalJPEGWithSOF(t, 0xC0, 640, 480, 2, 2)
	info, err := m.ParseFrame(frame)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	want := StreamInfo{Width: 640, Height: 480, ChromaSubsampling: "4:2:0"}
	if diff := cmp.Diff(want, info); diff != "" {
		t.Errorf("ParseFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestPassthroughPushesExtraHeaderOnce(t *testing.T) {
	m, _ := New(FormatH264, []byte{0x01, 0x02, 0x03})
	p1, _ := m.SynthesizeFrame(StreamInfo{}, nil)
	if !bytes.Equal(p1, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("first frame prefix = % X, want 01 02 03", p1)
	}
	p2, _ := m.SynthesizeFrame(StreamInfo{}, nil)
	if len(p2) != 0 {
		t.Errorf("second frame prefix = % X, want empty", p2)
	}
}

// buildMinimalJPEGWithSOF constructs a byte slice containing just enough
// of a JPEG structure (SOI, then an SOF0 segment) for jpegMuncher to
// parse dimensions and subsampling out of.
func buildMinimalJPEGWithSOF(t *testing.T, marker byte, width, height int, hSamp, vSamp byte) []byte {
	t.Helper()
	var b bytes.Buffer
	b.Write([]byte{0xFF, 0xD8}) // SOI
	b.Write([]byte{0xFF, marker})
	// length(2) + precision(1) + height(2) + width(2) + numComponents(1)
	// + 3 components * 3 bytes = 17; only the first component is written.
	b.Write([]byte{0x00, 0x11})
	b.WriteByte(0x08) // precision
	b.Write([]byte{byte(height >> 8), byte(height)})
	b.Write([]byte{byte(width >> 8), byte(width)})
	b.WriteByte(0x03) // numComponents
	b.WriteByte(0x01) // component ID
	b.WriteByte(hSamp<<4 | vSamp)
	b.WriteByte(0x00) // quant table selector
	return b.Bytes()
}
