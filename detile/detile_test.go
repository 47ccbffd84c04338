package detile

import (
	"bytes"
	"testing"

	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/framebuffer"
)

func newBuffer(t *testing.T, contents []byte) dma.Buffer {
	t.Helper()
	a := dma.NewHeapAllocator()
	buf, err := a.Allocate(len(contents), 4096, 0)
	if err != nil {
		t.Fatalf("allocating buffer: %v", err)
	}
	mapped, err := buf.Map(dma.Write)
	if err != nil {
		t.Fatalf("mapping buffer: %v", err)
	}
	copy(mapped, contents)
	return buf
}

func TestLinearCopy(t *testing.T) {
	m := framebuffer.Compute(framebuffer.YUV420, 16, 16, 1, false, false)
	src := make([]byte, m.TotalSize)
	for i := range src {
		src[i] = byte(i)
	}

	srcFB := framebuffer.NewFramebuffer(m, newBuffer(t, src), nil, 0)
	dstFB := framebuffer.NewFramebuffer(m, newBuffer(t, make([]byte, m.TotalSize)), nil, 0)

	if err := (LinearCopy{}).Copy(srcFB, dstFB); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	dstBuf, err := dstFB.DMA.Map(dma.Read)
	if err != nil {
		t.Fatalf("mapping destination: %v", err)
	}
	if !bytes.Equal(dstBuf[:m.TotalSize], src) {
		t.Error("destination buffer does not match source after Copy")
	}
}

func TestLinearCopyTruncatesToSmallerSize(t *testing.T) {
	srcMetrics := framebuffer.Compute(framebuffer.YUV420, 32, 32, 1, false, false)
	dstMetrics := framebuffer.Compute(framebuffer.YUV420, 8, 8, 1, false, false)

	src := make([]byte, srcMetrics.TotalSize)
	for i := range src {
		src[i] = 0xAB
	}
	srcFB := framebuffer.NewFramebuffer(srcMetrics, newBuffer(t, src), nil, 0)
	dstFB := framebuffer.NewFramebuffer(dstMetrics, newBuffer(t, make([]byte, dstMetrics.TotalSize)), nil, 0)

	if err := (LinearCopy{}).Copy(srcFB, dstFB); err != nil {
		t.Fatalf("Copy: %v", err)
	}

	dstBuf, err := dstFB.DMA.Map(dma.Read)
	if err != nil {
		t.Fatalf("mapping destination: %v", err)
	}
	for i := 0; i < int(dstMetrics.TotalSize); i++ {
		if dstBuf[i] != 0xAB {
			t.Fatalf("byte %d = %#x, want 0xAB", i, dstBuf[i])
		}
	}
}
