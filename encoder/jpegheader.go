/*
DESCRIPTION
  jpegheader.go builds the JFIF APP0 segment prepended to every encoded
  JPEG frame. Quantization tables are not built here; they are left to
  the firmware driver's SetJPEGTables.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package encoder

import "encoding/binary"

// JFIF APP0 marker layout, per the ITU-T T.81/JFIF 1.02 standard segment
// this library always prepends to a JPEG encode's firmware body.
const (
	jfifMarker      = 0xFFE0
	jfifSegmentLen  = 16 // length field value, excludes the marker itself.
	jfifVersion     = 0x0102
	jfifDensityUnit = 0 // no units; aspect ratio only.
	jfifXDensity    = 1
	jfifYDensity    = 1
)

var jfifIdentifier = [5]byte{'J', 'F', 'I', 'F', 0}

// JFIFAPP0Size is the total byte length of the segment buildJFIFAPP0
// writes: the 2-byte 0xFFE0 marker plus jfifSegmentLen, which already
// counts the 2-byte length field itself.
const JFIFAPP0Size = 2 + jfifSegmentLen

// buildJFIFAPP0 writes the canonical JFIF APP0 segment used by
// get_encoded_frame when packaging a JPEG frame.
func buildJFIFAPP0() []byte {
	b := make([]byte, JFIFAPP0Size)
	binary.BigEndian.PutUint16(b[0:], jfifMarker)
	binary.BigEndian.PutUint16(b[2:], jfifSegmentLen)
	idx := 4
	idx += copy(b[idx:], jfifIdentifier[:])
	binary.BigEndian.PutUint16(b[idx:], jfifVersion)
	b[idx+2] = jfifDensityUnit
	binary.BigEndian.PutUint16(b[idx+3:], jfifXDensity)
	binary.BigEndian.PutUint16(b[idx+5:], jfifYDensity)
	b[idx+7] = 0 // Xthumbnail
	b[idx+8] = 0 // Ythumbnail
	return b
}
