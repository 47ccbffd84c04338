/*
DESCRIPTION
  iofacade.go adds EncodeToWriter/DecodeReader convenience wrappers
  around Codec for callers that want whole-image JPEG en/decode without
  touching dma.Buffer directly, grounded on the teacher's
  codec/jpeg.NewContext(io.Writer) idiom.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package jpegfacade

import (
	"context"
	"io"

	"github.com/ausocean/vpu/framebuffer"
	"github.com/ausocean/vpu/status"
)

// maxEncodedJPEGSize bounds the scratch buffer EncodeToWriter reads the
// encoder's output into before forwarding it to w.
const maxEncodedJPEGSize = 1 << 20

// EncodeToWriter encodes src and writes the resulting JPEG bytes to w,
// for callers that would otherwise allocate a dma.Buffer themselves just
// to call Encode.
func (c *Codec) EncodeToWriter(ctx context.Context, w io.Writer, src framebuffer.Framebuffer, params EncodeParams) error {
	scratch := make([]byte, maxEncodedJPEGSize)
	n, err := c.Encode(ctx, src, params, scratch)
	if err != nil {
		return err
	}
	if _, err := w.Write(scratch[:n]); err != nil {
		return status.Wrap(status.Error, err, "jpegfacade: writing encoded JPEG")
	}
	return nil
}

// DecodeReader reads a whole JPEG image from r and decodes it, for
// callers that would otherwise have to buffer it into a []byte
// themselves just to call Decode.
func (c *Codec) DecodeReader(ctx context.Context, r io.Reader) (DecodedImage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return DecodedImage{}, status.Wrap(status.Error, err, "jpegfacade: reading JPEG source")
	}
	return c.Decode(ctx, data)
}
