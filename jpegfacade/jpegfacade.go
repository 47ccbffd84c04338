/*
DESCRIPTION
  jpegfacade.go implements Codec, a simplified single-shot JPEG
  encode/decode facade over vpu/encoder and vpu/decoder: it hides the
  framebuffer-pool and staged-frame bookkeeping those packages require,
  reopening the underlying instance only when the caller's geometry,
  quality or color format actually change.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package jpegfacade provides a single-shot whole-frame JPEG
// encode/decode API over vpu/encoder and vpu/decoder, for callers that
// want to push one raw frame in and get one JPEG buffer out (or vice
// versa) without driving either state machine directly.
package jpegfacade

import (
	"context"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/decoder"
	"github.com/ausocean/vpu/dma"
	"github.com/ausocean/vpu/encoder"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
	"github.com/ausocean/vpu/vpulog"
)

// streamBufferSize is a fixed, generous allowance for the internal
// encode/decode stream buffers a Codec owns; single-frame JPEG bodies
// are small relative to the scratch this buys.
const streamBufferSize = 1 << 20

// jpegParams is the subset of encoder/decoder geometry that, if
// unchanged since the last call, lets Codec skip reopening the
// underlying firmware instance — mirroring imxvpuapi_jpeg.c's check
// against the previously-used width/height/quality/color format before
// paying for another imx_vpu_enc_open.
type jpegParams struct {
	width, height uint
	quality       int
	colorFormat   framebuffer.ColorFormat
}

// Codec is a reusable single-shot JPEG encoder/decoder. A zero Codec is
// not valid; construct with New.
type Codec struct {
	driver firmware.Driver
	log    vpulog.Logger

	encAllocator dma.Allocator
	enc          *encoder.EncoderInstance
	encOpen      bool
	encParams    jpegParams
	encStreamBuf dma.Buffer

	decAllocator dma.Allocator
	dec          *decoder.DecoderInstance
	decOpen      bool
	decStreamBuf dma.Buffer
	decPoolBuf   dma.Buffer
}

// New constructs a Codec bound to driver (the firmware shim). A nil log
// discards all log output.
func New(driver firmware.Driver, log vpulog.Logger) *Codec {
	if log == nil {
		log = vpulog.Discard()
	}
	return &Codec{
		driver:       driver,
		log:          log,
		encAllocator: dma.NewHeapAllocator(),
		decAllocator: dma.NewHeapAllocator(),
	}
}

// DecodedImage is what Decode returns: the recovered geometry alongside
// the framebuffer holding pixel data in planar YUV. The caller owns FB
// and must not reuse it across a subsequent Decode call.
type DecodedImage struct {
	Width, Height uint
	ColorFormat   framebuffer.ColorFormat
	FB            framebuffer.Framebuffer
}

// Encode compresses src (a raw planar framebuffer already matching
// params' geometry) to JPEG, writing the encoded bytes into dst and
// returning how many bytes were written. The underlying encoder is
// reopened only if width, height, quality or color format changed since
// the last Encode call.
func (c *Codec) Encode(ctx context.Context, src framebuffer.Framebuffer, params EncodeParams, dst []byte) (int, error) {
	if err := c.ensureEncoderOpen(ctx, params); err != nil {
		return 0, err
	}

	if err := c.enc.PushRawFrame(encoder.RawFrame{FB: src, FrameType: encoder.FrameI}); err != nil {
		return 0, status.Wrap(status.Error, err, "jpegfacade: pushing raw frame")
	}
	code, err := c.enc.Encode(ctx)
	if err != nil {
		return 0, status.Wrap(status.Error, err, "jpegfacade: encoding frame")
	}
	if code != encoder.OutputEncodedFrameAvailable {
		return 0, status.New(status.Error)
	}

	n, _, err := c.enc.GetEncodedFrame(dst)
	if err != nil {
		return 0, status.Wrap(status.Error, err, "jpegfacade: reading encoded frame")
	}
	return n, nil
}

// EncodeParams configures a single Encode call.
type EncodeParams struct {
	Width, Height uint
	Quality       int

	// ColorFormat participates in reopen-on-change detection even
	// though vpu/encoder's JPEG input path is presently fixed to
	// YUV420: a caller that changes src's chroma layout still forces a
	// fresh encoder.
	ColorFormat framebuffer.ColorFormat
}

// ensureEncoderOpen (re)opens the encoder only when params differ from
// the last call, per the original's "reopen only on parameter change"
// behavior.
func (c *Codec) ensureEncoderOpen(ctx context.Context, params EncodeParams) error {
	want := jpegParams{width: params.Width, height: params.Height, quality: params.Quality, colorFormat: params.ColorFormat}
	if c.encOpen && c.enc != nil && c.encParams == want {
		return nil
	}

	if c.encOpen {
		c.enc.Close()
	}
	if c.encStreamBuf == nil {
		buf, err := c.encAllocator.Allocate(streamBufferSize, 4096, 0)
		if err != nil {
			return status.Wrap(status.DmaMemoryAccessError, err, "jpegfacade: allocating encode stream buffer")
		}
		c.encStreamBuf = buf
	}

	c.enc = encoder.New(c.driver, c.log)
	openParams := encoder.OpenParams{
		Format:               codec.FormatJPEG,
		Width:                params.Width,
		Height:               params.Height,
		FramebufferAlignment: 4096,
		GOPSize:              1,
		JPEGQuality:          params.Quality,
	}
	if err := c.enc.Open(ctx, openParams, c.encStreamBuf, streamBufferSize-4096); err != nil {
		return status.Wrap(status.Error, err, "jpegfacade: opening encoder")
	}

	c.encOpen = true
	c.encParams = want
	return nil
}

// Decode parses a whole JPEG image (a complete SOI..EOI byte sequence)
// and returns its geometry plus a framebuffer holding the decoded
// planar pixel data. The underlying decoder is opened on the first call
// and never reopened; the JPEG's SOF-declared geometry is read per frame
// inside vpu/decoder.
func (c *Codec) Decode(ctx context.Context, jpegBytes []byte) (DecodedImage, error) {
	if err := c.ensureDecoderOpen(ctx); err != nil {
		return DecodedImage{}, err
	}

	if err := c.dec.PushEncodedFrame(decoder.EncodedFrame{Data: jpegBytes}); err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: pushing encoded frame")
	}

	code, err := c.dec.Decode(ctx)
	if err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: decoding frame (info)")
	}
	if code != decoder.OutputNewStreamInfoAvailable {
		return DecodedImage{}, status.New(status.Error)
	}

	info := c.dec.StreamInfo()
	fb, err := c.allocateDecodePool(info.Metrics)
	if err != nil {
		return DecodedImage{}, err
	}
	if err := c.dec.AddFramebuffersToPool([]framebuffer.Framebuffer{fb}, []interface{}{nil}); err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: registering decode framebuffer")
	}

	c.dec.SetOutputFrameDMABuffer(fb.DMA, nil)
	code, err = c.dec.Decode(ctx)
	if err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: decoding frame")
	}
	if code != decoder.OutputDecodedFrameAvailable {
		return DecodedImage{}, status.New(status.Error)
	}

	raw, err := c.dec.GetDecodedFrame()
	if err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: reading decoded frame")
	}

	return DecodedImage{
		Width:       info.Metrics.ActualWidth,
		Height:      info.Metrics.ActualHeight,
		ColorFormat: info.ColorFormat,
		FB:          raw.FB,
	}, nil
}

// ensureDecoderOpen opens the decoder once; JPEG geometry is
// rediscovered per frame via checkJPEGFormatChange inside vpu/decoder
// itself, so Decode never needs to reopen this instance.
func (c *Codec) ensureDecoderOpen(ctx context.Context) error {
	if c.decOpen {
		return nil
	}

	buf, err := c.decAllocator.Allocate(streamBufferSize, 4096, 0)
	if err != nil {
		return status.Wrap(status.DmaMemoryAccessError, err, "jpegfacade: allocating decode stream buffer")
	}
	c.decStreamBuf = buf

	c.dec = decoder.New(c.driver, nil, c.log)
	openParams := decoder.OpenParams{Format: codec.FormatJPEG, FramebufferAlignment: 4096}
	if err := c.dec.Open(ctx, openParams, c.decStreamBuf, streamBufferSize-4096); err != nil {
		return status.Wrap(status.Error, err, "jpegfacade: opening decoder")
	}

	c.decOpen = true
	return nil
}

// allocateDecodePool allocates one framebuffer sized for m, releasing
// any framebuffer allocated for a previous, differently-sized decode.
func (c *Codec) allocateDecodePool(m framebuffer.Metrics) (framebuffer.Framebuffer, error) {
	if c.decPoolBuf != nil {
		if err := c.decAllocator.Deallocate(c.decPoolBuf); err != nil {
			c.log.Warning("jpegfacade: releasing previous decode framebuffer: %v", err)
		}
		c.decPoolBuf = nil
	}
	buf, err := c.decAllocator.Allocate(int(m.TotalSize), 4096, 0)
	if err != nil {
		return framebuffer.Framebuffer{}, status.Wrap(status.DmaMemoryAccessError, err, "jpegfacade: allocating decode framebuffer")
	}
	c.decPoolBuf = buf
	return framebuffer.NewFramebuffer(m, buf, nil, 0), nil
}

// Close tears down any open encoder/decoder instances this Codec owns.
func (c *Codec) Close() {
	if c.encOpen {
		c.enc.Close()
		c.encOpen = false
	}
	if c.decOpen {
		c.dec.Close()
		c.decOpen = false
	}
}
