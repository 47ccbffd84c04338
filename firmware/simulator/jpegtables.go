/*
DESCRIPTION
  jpegtables.go scales the IJG default JPEG quantization tables by a
  requested quality factor, the way set_jpeg_tables configures the
  firmware's Huffman/quantization tables at open time.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package simulator

// defaultLumaQuantiser and defaultChromaQuantiser are the IJG/ITU-T
// T.81 Annex K.1 baseline default quantization tables, in natural
// (row-major) order, not zigzag order.
var defaultLumaQuantiser = [64]byte{
	16, 11, 10, 16, 24, 40, 51, 61,
	12, 12, 14, 19, 26, 58, 60, 55,
	14, 13, 16, 24, 40, 57, 69, 56,
	14, 17, 22, 29, 51, 87, 80, 62,
	18, 22, 37, 56, 68, 109, 103, 77,
	24, 35, 55, 64, 81, 104, 113, 92,
	49, 64, 78, 87, 103, 121, 120, 101,
	72, 92, 95, 98, 112, 100, 103, 99,
}

var defaultChromaQuantiser = [64]byte{
	17, 18, 24, 47, 99, 99, 99, 99,
	18, 21, 26, 66, 99, 99, 99, 99,
	24, 26, 56, 99, 99, 99, 99, 99,
	47, 66, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
	99, 99, 99, 99, 99, 99, 99, 99,
}

// scaleQuantTable scales a default quantization table by the IJG
// quality formula: scale = q<50 ? 5000/q : 200-2q, with quality first
// clamped to [1,100] and each scaled coefficient clamped to [1,255].
// q=100 yields scale 0, clamping every coefficient to 1.
func scaleQuantTable(base [64]byte, quality int) []byte {
	q := clip(quality, 1, 100)
	var scale int
	if q < 50 {
		scale = 5000 / q
	} else {
		scale = 200 - 2*q
	}
	out := make([]byte, 64)
	for i, v := range base {
		scaled := (int(v)*scale + 50) / 100
		out[i] = byte(clip(scaled, 1, 255))
	}
	return out
}

func clip(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
