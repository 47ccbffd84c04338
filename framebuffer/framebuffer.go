/*
DESCRIPTION
  framebuffer.go implements the pure geometry calculations (alignment,
  stride/offset/size per color format) shared by the decoder and encoder
  pool managers, plus the Framebuffer type binding a dma.Buffer to those
  metrics.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package framebuffer implements VPU framebuffer geometry: aligned
// dimensions, plane strides, plane sizes and offsets, as pure functions of
// color format, requested size, and alignment rules.
package framebuffer

import "github.com/ausocean/vpu/dma"

// ColorFormat identifies a decoded/encoded frame's chroma subsampling.
type ColorFormat int

const (
	YUV420 ColorFormat = iota
	YUV422Horizontal
	YUV422Vertical
	YUV444
	YUV400
)

func (c ColorFormat) String() string {
	switch c {
	case YUV420:
		return "YUV420"
	case YUV422Horizontal:
		return "YUV422 horizontal"
	case YUV422Vertical:
		return "YUV422 vertical"
	case YUV444:
		return "YUV444"
	case YUV400:
		return "YUV400 (greyscale)"
	default:
		return "unknown color format"
	}
}

// alignUp rounds v up to the nearest multiple of n. n of 0 or 1 means no
// alignment is applied.
func alignUp(v, n uint) uint {
	if n <= 1 {
		return v
	}
	rem := v % n
	if rem == 0 {
		return v
	}
	return v + (n - rem)
}

// Metrics is the pure value type describing a framebuffer's layout: its
// aligned dimensions, plane strides, plane sizes, plane offsets, and total
// required buffer size. It satisfies the geometry idempotence law:
// Compute(Compute(w,h,...).AlignedWidth, Compute(w,h,...).AlignedHeight, ...)
// has the same aligned dimensions, strides, plane sizes, offsets and total
// size as Compute(w,h,...), since aligning an already-aligned dimension is
// a no-op; only ActualWidth/ActualHeight differ, as they record the
// requested dimensions.
type Metrics struct {
	ActualWidth, ActualHeight   uint
	AlignedWidth, AlignedHeight uint

	YStride, UVStride uint
	YSize, UVSize     uint
	MvColSize         uint

	YOffset, UOffset, VOffset, MvColOffset uint

	TotalSize uint

	ChromaInterleave bool
}

// decodeWidthAlignment, decodeHeightAlignment and interlacedHeightAlign
// are the decoding alignment rules from spec.md section 3: width%16=0,
// height%16=0 (or %32 when interlaced). Compute applies them for every
// caller; it takes no dimension-alignment argument, so the encoder's
// width%8=0, height%2=0 input-frame rule is not expressed here.
const (
	decodeWidthAlignment  = 16
	decodeHeightAlignment = 16
	interlacedHeightAlign = 32
)

// Compute calculates framebuffer geometry for the given color format,
// requested width/height, plane-size alignment (0 or 1 meaning none),
// interlacing flag and chroma-interleave flag. Width and height are always
// aligned up to the decoder's hardware rules (16-pixel boundary, widened
// to 32 for interlaced height); a caller that pre-aligns w/h to a smaller
// boundary still gets 16-aligned metrics.
func Compute(format ColorFormat, width, height uint, framebufferAlignment uint, interlaced bool, chromaInterleave bool) Metrics {
	heightAlign := uint(decodeHeightAlignment)
	if interlaced {
		heightAlign = interlacedHeightAlign
	}

	m := Metrics{
		ActualWidth:      width,
		ActualHeight:     height,
		AlignedWidth:     alignUp(width, decodeWidthAlignment),
		AlignedHeight:    alignUp(height, heightAlign),
		ChromaInterleave: chromaInterleave,
	}

	m.YStride = m.AlignedWidth
	m.YSize = alignUp(m.YStride*m.AlignedHeight, framebufferAlignment)

	switch format {
	case YUV420:
		m.UVStride = m.YStride / 2
		m.UVSize = (m.YStride * m.AlignedHeight) / 4
	case YUV422Horizontal:
		m.UVStride = m.YStride / 2
		m.UVSize = (m.YStride * m.AlignedHeight) / 2
	case YUV444:
		m.UVStride = m.YStride
		m.UVSize = m.YStride * m.AlignedHeight
	case YUV400:
		m.UVStride = 0
		m.UVSize = 0
	}
	if format != YUV400 {
		m.UVSize = alignUp(m.UVSize, framebufferAlignment)
	}

	mvcolSize := m.UVSize

	if chromaInterleave && format != YUV400 {
		m.UVStride *= 2
		m.UVSize *= 2
	}

	m.MvColSize = mvcolSize

	m.YOffset = 0
	m.UOffset = m.YSize
	if chromaInterleave {
		// A single interleaved CbCr plane replaces the two chroma
		// planes; V's offset coincides with U's.
		m.VOffset = m.UOffset
		m.MvColOffset = m.UOffset + m.UVSize
		m.TotalSize = m.YSize + m.UVSize + m.MvColSize
	} else {
		m.VOffset = m.UOffset + m.UVSize
		m.MvColOffset = m.VOffset + m.UVSize
		m.TotalSize = m.YSize + 2*m.UVSize + m.MvColSize
	}

	return m
}

// Framebuffer binds a dma.Buffer to computed Metrics, plus a caller-opaque
// context pointer and the framebuffer's slot index within its pool.
type Framebuffer struct {
	DMA     dma.Buffer
	Metrics Metrics
	Context interface{}
	Index   int
}

// NewFramebuffer fills a Framebuffer from already-computed metrics, the
// caller's DMA buffer, and an opaque context value, mirroring
// imx_vpu_fill_framebuffer_params from the original library.
func NewFramebuffer(m Metrics, buf dma.Buffer, context interface{}, index int) Framebuffer {
	return Framebuffer{DMA: buf, Metrics: m, Context: context, Index: index}
}
