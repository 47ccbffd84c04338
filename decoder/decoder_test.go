package decoder

import (
	"context"
	"testing"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/firmware/simulator"
	"github.com/ausocean/vpu/framebuffer"
)

func newStreamBuffer(t *testing.T, size int) dma.Buffer {
	t.Helper()
	a := dma.NewHeapAllocator()
	buf, err := a.Allocate(size, 1, 0)
	if err != nil {
		t.Fatalf("allocating stream buffer: %v", err)
	}
	return buf
}

func newFramebuffer(t *testing.T, m framebuffer.Metrics) framebuffer.Framebuffer {
	t.Helper()
	a := dma.NewHeapAllocator()
	buf, err := a.Allocate(int(m.TotalSize), 4096, 0)
	if err != nil {
		t.Fatalf("allocating framebuffer: %v", err)
	}
	return framebuffer.NewFramebuffer(m, buf, nil, 0)
}

func TestDecodeJPEGSingleFrame(t *testing.T) {
	sim := simulator.New(nil)
	dec := New(sim, nil, nil)

	params := OpenParams{Format: codec.FormatJPEG, Width: 1920, Height: 1088, FramebufferAlignment: 4096}
	streamBuf := newStreamBuffer(t, 1<<20)
	if err := dec.Open(context.Background(), params, streamBuf, 1<<19); err != nil {
		t.Fatalf("Open: %v", err)
	}

	jpeg := buildMinimalJPEG(t, 640, 480)
	ctx := "frame-1"
	if err := dec.PushEncodedFrame(EncodedFrame{Data: jpeg, Context: ctx, PTS: 100, DTS: 100}); err != nil {
		t.Fatalf("PushEncodedFrame: %v", err)
	}

	out := newFramebuffer(t, framebuffer.Compute(framebuffer.YUV420, 1920, 1088, 4096, false, false))
	dec.SetOutputFrameDMABuffer(out.DMA, "out-ctx")

	code, err := dec.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode (1st): %v", err)
	}
	if code != OutputNewStreamInfoAvailable {
		t.Fatalf("Decode (1st) = %v, want OutputNewStreamInfoAvailable", code)
	}
	if dec.NumFramebuffersToBeAdded() != 1 {
		t.Fatalf("NumFramebuffersToBeAdded = %d, want 1", dec.NumFramebuffersToBeAdded())
	}

	fb := newFramebuffer(t, dec.info.Metrics)
	if err := dec.AddFramebuffersToPool([]framebuffer.Framebuffer{fb}, []interface{}{"slot-0"}); err != nil {
		t.Fatalf("AddFramebuffersToPool: %v", err)
	}

	dec.SetOutputFrameDMABuffer(out.DMA, "out-ctx")
	code, err = dec.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode (2nd): %v", err)
	}
	if code != OutputDecodedFrameAvailable {
		t.Fatalf("Decode (2nd) = %v, want OutputDecodedFrameAvailable", code)
	}

	raw, err := dec.GetDecodedFrame()
	if err != nil {
		t.Fatalf("GetDecodedFrame: %v", err)
	}
	if raw.Context != ctx {
		t.Errorf("raw.Context = %v, want %v", raw.Context, ctx)
	}
	if raw.PTS != 100 || raw.DTS != 100 {
		t.Errorf("raw.PTS/DTS = %d/%d, want 100/100", raw.PTS, raw.DTS)
	}
}

func TestDecodeH264DrainProducesAllFramesInOrder(t *testing.T) {
	sim := simulator.New(nil)
	sim.ReorderDelay = 1
	dec := New(sim, nil, nil)

	params := OpenParams{Format: codec.FormatH264, Width: 1280, Height: 720, ReorderEnable: true, FramebufferAlignment: 4096}
	streamBuf := newStreamBuffer(t, 1<<20)
	if err := dec.Open(context.Background(), params, streamBuf, 1<<19); err != nil {
		t.Fatalf("Open: %v", err)
	}

	var out framebuffer.Framebuffer
	var outAllocated bool
	var decodedCount int
	poolAdded := false

	for pts := int64(0); pts < 5; pts++ {
		if err := dec.PushEncodedFrame(EncodedFrame{Data: []byte{0, 0, 0, 1, 0x61}, PTS: pts, Context: pts}); err != nil {
			t.Fatalf("PushEncodedFrame(pts=%d): %v", pts, err)
		}
		for {
			if outAllocated {
				dec.SetOutputFrameDMABuffer(out.DMA, nil)
			}
			code, err := dec.Decode(context.Background())
			if err != nil {
				t.Fatalf("Decode(pts=%d): %v", pts, err)
			}
			switch code {
			case OutputNewStreamInfoAvailable:
				if poolAdded {
					t.Fatal("NewStreamInfoAvailable reported more than once")
				}
				n := dec.NumFramebuffersToBeAdded()
				fbs := make([]framebuffer.Framebuffer, n)
				ctxs := make([]interface{}, n)
				for i := range fbs {
					fbs[i] = newFramebuffer(t, dec.info.Metrics)
					ctxs[i] = i + 1
				}
				if err := dec.AddFramebuffersToPool(fbs, ctxs); err != nil {
					t.Fatalf("AddFramebuffersToPool: %v", err)
				}
				out = newFramebuffer(t, dec.info.Metrics)
				outAllocated = true
				poolAdded = true
				continue
			case OutputDecodedFrameAvailable:
				if _, err := dec.GetDecodedFrame(); err != nil {
					t.Fatalf("GetDecodedFrame: %v", err)
				}
				decodedCount++
			}
			break
		}
	}

	dec.EnableDrainMode()
	for {
		dec.SetOutputFrameDMABuffer(out.DMA, nil)
		code, err := dec.Decode(context.Background())
		if err != nil {
			t.Fatalf("Decode (drain): %v", err)
		}
		if code == OutputDecodedFrameAvailable {
			if _, err := dec.GetDecodedFrame(); err != nil {
				t.Fatalf("GetDecodedFrame (drain): %v", err)
			}
			decodedCount++
		}
		if code == OutputEOS {
			break
		}
	}

	if decodedCount != 5 {
		t.Errorf("decodedCount = %d, want 5", decodedCount)
	}
}

// TestDecodeH264ParameterChange pushes an in-band SPS reporting 176x144,
// then a second SPS reporting 352x288, and checks that the resolution
// change is caught by checkH264FormatChange ahead of the firmware ever
// seeing the second frame.
func TestDecodeH264ParameterChange(t *testing.T) {
	sim := simulator.New(nil)
	dec := New(sim, nil, nil)

	params := OpenParams{Format: codec.FormatH264, Width: 176, Height: 144, FramebufferAlignment: 4096}
	streamBuf := newStreamBuffer(t, 1<<20)
	if err := dec.Open(context.Background(), params, streamBuf, 1<<19); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sps176x144 := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1E, 0xF4, 0x16, 0x27, 0x00}
	sps352x288 := []byte{0x00, 0x00, 0x00, 0x01, 0x67, 0x42, 0x00, 0x1E, 0xF4, 0x0B, 0x04, 0xB0}

	if err := dec.PushEncodedFrame(EncodedFrame{Data: sps176x144, PTS: 0}); err != nil {
		t.Fatalf("PushEncodedFrame (1st): %v", err)
	}
	code, err := dec.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode (1st): %v", err)
	}
	if code != OutputNewStreamInfoAvailable {
		t.Fatalf("Decode (1st) = %v, want OutputNewStreamInfoAvailable", code)
	}

	n := dec.NumFramebuffersToBeAdded()
	fbs := make([]framebuffer.Framebuffer, n)
	ctxs := make([]interface{}, n)
	for i := range fbs {
		fbs[i] = newFramebuffer(t, dec.info.Metrics)
		ctxs[i] = i + 1
	}
	if err := dec.AddFramebuffersToPool(fbs, ctxs); err != nil {
		t.Fatalf("AddFramebuffersToPool: %v", err)
	}

	// Consume the first staged frame so PushEncodedFrame accepts the next
	// one; the SPS it carries reports no change against itself.
	firstOut := newFramebuffer(t, dec.info.Metrics)
	dec.SetOutputFrameDMABuffer(firstOut.DMA, nil)
	code, err = dec.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode (consume 1st): %v", err)
	}
	if code == OutputDecodedFrameAvailable {
		if _, err := dec.GetDecodedFrame(); err != nil {
			t.Fatalf("GetDecodedFrame (1st): %v", err)
		}
	}

	if err := dec.PushEncodedFrame(EncodedFrame{Data: sps352x288, PTS: 1}); err != nil {
		t.Fatalf("PushEncodedFrame (2nd): %v", err)
	}
	out := newFramebuffer(t, dec.info.Metrics)
	dec.SetOutputFrameDMABuffer(out.DMA, nil)
	code, err = dec.Decode(context.Background())
	if err != nil {
		t.Fatalf("Decode (2nd): %v", err)
	}
	if code != OutputVideoParametersChanged {
		t.Fatalf("Decode (2nd) = %v, want OutputVideoParametersChanged", code)
	}
}

// buildMinimalJPEG constructs an SOI+SOF0 JPEG byte sequence sufficient
// for codec.jpegMuncher.ParseFrame to extract dimensions from.
func buildMinimalJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	b := []byte{0xFF, 0xD8, 0xFF, 0xC0}
	b = append(b, 0x00, 0x11)
	b = append(b, 0x08)
	b = append(b, byte(height>>8), byte(height))
	b = append(b, byte(width>>8), byte(width))
	b = append(b, 0x03)
	b = append(b, 0x01, 0x22, 0x00)
	return b
}
