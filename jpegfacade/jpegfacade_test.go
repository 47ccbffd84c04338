package jpegfacade

import (
	"bytes"
	"context"
	"testing"

	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/firmware/simulator"
	"github.com/ausocean/vpu/framebuffer"
)

func newSrcFramebuffer(t *testing.T, w, h uint) framebuffer.Framebuffer {
	t.Helper()
	m := framebuffer.Compute(framebuffer.YUV420, w, h, 1, false, false)
	a := dma.NewHeapAllocator()
	buf, err := a.Allocate(int(m.TotalSize), 4096, 0)
	if err != nil {
		t.Fatalf("allocating source framebuffer: %v", err)
	}
	return framebuffer.NewFramebuffer(m, buf, nil, 0)
}

func TestEncodeRoundTripsToDecode(t *testing.T) {
	sim := simulator.New(nil)
	c := New(sim, nil)
	defer c.Close()

	src := newSrcFramebuffer(t, 64, 32)
	params := EncodeParams{Width: 64, Height: 32, Quality: 75}

	dst := make([]byte, 8192)
	n, err := c.Encode(context.Background(), src, params, dst)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if n < 2 || dst[0] != 0xFF || dst[1] != 0xD8 {
		t.Fatalf("Encode output does not start with SOI marker: %x", dst[:2])
	}

	img, err := c.Decode(context.Background(), dst[:n])
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Width != 64 || img.Height != 32 {
		t.Errorf("Decode geometry = %dx%d, want 64x32", img.Width, img.Height)
	}
}

func TestEncodeReopensOnlyOnParameterChange(t *testing.T) {
	sim := simulator.New(nil)
	c := New(sim, nil)
	defer c.Close()

	src := newSrcFramebuffer(t, 32, 16)
	params := EncodeParams{Width: 32, Height: 16, Quality: 50}
	dst := make([]byte, 8192)

	if _, err := c.Encode(context.Background(), src, params, dst); err != nil {
		t.Fatalf("Encode (1st): %v", err)
	}
	firstEnc := c.enc

	if _, err := c.Encode(context.Background(), src, params, dst); err != nil {
		t.Fatalf("Encode (2nd, same params): %v", err)
	}
	if c.enc != firstEnc {
		t.Error("Encode reopened the encoder despite unchanged parameters")
	}

	params.Quality = 90
	if _, err := c.Encode(context.Background(), src, params, dst); err != nil {
		t.Fatalf("Encode (3rd, changed quality): %v", err)
	}
	if c.enc == firstEnc {
		t.Error("Encode did not reopen the encoder after a quality change")
	}
}

func TestEncodeToWriterAndDecodeReader(t *testing.T) {
	sim := simulator.New(nil)
	c := New(sim, nil)
	defer c.Close()

	src := newSrcFramebuffer(t, 48, 24)
	params := EncodeParams{Width: 48, Height: 24, Quality: 80}

	var buf bytes.Buffer
	if err := c.EncodeToWriter(context.Background(), &buf, src, params); err != nil {
		t.Fatalf("EncodeToWriter: %v", err)
	}
	if buf.Len() < 2 {
		t.Fatalf("EncodeToWriter wrote too little: %d bytes", buf.Len())
	}

	img, err := c.DecodeReader(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeReader: %v", err)
	}
	if img.Width != 48 || img.Height != 24 {
		t.Errorf("DecodeReader geometry = %dx%d, want 48x24", img.Width, img.Height)
	}
}
