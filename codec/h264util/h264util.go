/*
DESCRIPTION
  h264util.go provides NAL unit splitting and SPS resolution parsing
  for the decoder's in-band parameter-change detection, without
  pulling in a full software H.264
  decoder.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package h264util provides NAL unit splitting and SPS width/height
// extraction for Annex-B H.264 bytestreams, grounded on the teacher's
// codec/h264 in-memory frame scanning (not the full codec/h264/h264dec
// software decoder, which this module does not carry: see DESIGN.md).
package h264util

import (
	"bytes"

	"github.com/ausocean/vpu/codec/bitio"
)

// NAL unit types this package cares about; see ITU-T H.264 Table 7-1.
const (
	NALTypeNonIDRSlice = 1
	NALTypeIDRSlice    = 5
	NALTypeSPS         = 7
	NALTypePPS         = 8
)

// NALUnit is one NAL unit's type and its RBSP bytes (the start code and
// the single leading type byte are not included in Payload).
type NALUnit struct {
	Type    int
	Payload []byte
}

// SplitNALUnits splits an Annex-B byte stream (0x000001 or 0x00000001
// start codes) into individual NAL units, in the order they appear.
// Grounded on codec/h264/parse.go's frameScanner start-code search,
// adapted from a single NALType lookup into a full split.
func SplitNALUnits(stream []byte) []NALUnit {
	starts := startCodeOffsets(stream)
	if len(starts) == 0 {
		return nil
	}
	units := make([]NALUnit, 0, len(starts))
	for i, start := range starts {
		end := len(stream)
		if i+1 < len(starts) {
			end = starts[i+1].scBegin
		}
		body := stream[start.scEnd:end]
		if len(body) == 0 {
			continue
		}
		units = append(units, NALUnit{
			Type:    int(body[0] & 0x1f),
			Payload: body[1:],
		})
	}
	return units
}

type startCode struct {
	scBegin, scEnd int
}

// startCodeOffsets locates every 0x000001/0x00000001 start code in
// stream, returning each one's [begin,end) byte range.
func startCodeOffsets(stream []byte) []startCode {
	var out []startCode
	for i := 0; i+2 < len(stream); i++ {
		if stream[i] != 0x00 || stream[i+1] != 0x00 || stream[i+2] != 0x01 {
			continue
		}
		begin := i
		if i > 0 && stream[i-1] == 0x00 {
			begin = i - 1
		}
		out = append(out, startCode{scBegin: begin, scEnd: i + 3})
		i += 2
	}
	return out
}

// EmulationPreventionRemove strips the 0x03 emulation-prevention byte
// that follows every 0x0000 pair inside an RBSP, per H.264 7.4.1.1.
func EmulationPreventionRemove(rbsp []byte) []byte {
	out := make([]byte, 0, len(rbsp))
	zeros := 0
	for _, b := range rbsp {
		if zeros >= 2 && b == 0x03 {
			zeros = 0
			continue
		}
		if b == 0x00 {
			zeros++
		} else {
			zeros = 0
		}
		out = append(out, b)
	}
	return out
}

// ParseSPSResolution extracts width and height from a SPS NAL unit's
// RBSP (NALUnit.Payload for a NALTypeSPS unit, profile/level/id bytes
// included). Implements the subset of ISO/IEC 14496-10 7.3.2.1.1 needed
// for the dimensions: profile-dependent chroma/bit-depth/scaling-matrix
// fields, frame_mbs_only_flag, and frame_cropping — enough to match
// libimxvpuapi2's own VideoParametersChanged detection, which compares
// only width and height. VUI parsing is not needed for this and is not
// attempted.
func ParseSPSResolution(rbsp []byte) (width, height uint, err error) {
	rbsp = EmulationPreventionRemove(rbsp)
	if len(rbsp) < 4 {
		return 0, 0, errShortSPS
	}
	profileIdc := rbsp[0]
	br := bitio.NewBitReader(bytes.NewReader(rbsp[3:]))

	if _, err := br.ReadUE(); err != nil { // seq_parameter_set_id
		return 0, 0, err
	}

	switch profileIdc {
	case 100, 110, 122, 244, 44, 83, 86, 118, 128, 138, 139, 134, 135:
		chromaFormatIdc, err := br.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		if chromaFormatIdc == 3 {
			if _, err := br.ReadFlag(); err != nil { // separate_colour_plane_flag
				return 0, 0, err
			}
		}
		if _, err := br.ReadUE(); err != nil { // bit_depth_luma_minus8
			return 0, 0, err
		}
		if _, err := br.ReadUE(); err != nil { // bit_depth_chroma_minus8
			return 0, 0, err
		}
		if _, err := br.ReadFlag(); err != nil { // qpprime_y_zero_transform_bypass_flag
			return 0, 0, err
		}
		scalingMatrixPresent, err := br.ReadFlag()
		if err != nil {
			return 0, 0, err
		}
		if scalingMatrixPresent {
			lim := 8
			if chromaFormatIdc == 3 {
				lim = 12
			}
			if err := skipScalingMatrix(br, lim); err != nil {
				return 0, 0, err
			}
		}
	}

	if _, err := br.ReadUE(); err != nil { // log2_max_frame_num_minus4
		return 0, 0, err
	}
	picOrderCntType, err := br.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	switch picOrderCntType {
	case 0:
		if _, err := br.ReadUE(); err != nil { // log2_max_pic_order_cnt_lsb_minus4
			return 0, 0, err
		}
	case 1:
		if _, err := br.ReadFlag(); err != nil { // delta_pic_order_always_zero_flag
			return 0, 0, err
		}
		if _, err := readSE(br); err != nil { // offset_for_non_ref_pic
			return 0, 0, err
		}
		if _, err := readSE(br); err != nil { // offset_for_top_to_bottom_field
			return 0, 0, err
		}
		n, err := br.ReadUE() // num_ref_frames_in_pic_order_cnt_cycle
		if err != nil {
			return 0, 0, err
		}
		for i := uint32(0); i < n; i++ {
			if _, err := readSE(br); err != nil {
				return 0, 0, err
			}
		}
	}

	if _, err := br.ReadUE(); err != nil { // max_num_ref_frames
		return 0, 0, err
	}
	if _, err := br.ReadFlag(); err != nil { // gaps_in_frame_num_value_allowed_flag
		return 0, 0, err
	}

	picWidthInMbsMinus1, err := br.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	picHeightInMapUnitsMinus1, err := br.ReadUE()
	if err != nil {
		return 0, 0, err
	}
	frameMbsOnly, err := br.ReadFlag()
	if err != nil {
		return 0, 0, err
	}
	if !frameMbsOnly {
		if _, err := br.ReadFlag(); err != nil { // mb_adaptive_frame_field_flag
			return 0, 0, err
		}
	}
	if _, err := br.ReadFlag(); err != nil { // direct_8x8_inference_flag
		return 0, 0, err
	}

	width = (uint(picWidthInMbsMinus1) + 1) * 16
	frameHeightFactor := uint(2)
	if frameMbsOnly {
		frameHeightFactor = 1
	}
	height = frameHeightFactor * (uint(picHeightInMapUnitsMinus1) + 1) * 16

	cropFlag, err := br.ReadFlag()
	if err != nil {
		return 0, 0, err
	}
	if cropFlag {
		left, err := br.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		right, err := br.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		top, err := br.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		bottom, err := br.ReadUE()
		if err != nil {
			return 0, 0, err
		}
		width -= (uint(left) + uint(right)) * 2
		height -= (uint(top) + uint(bottom)) * 2
	}

	return width, height, nil
}

func skipScalingMatrix(br *bitio.BitReader, lim int) error {
	for i := 0; i < lim; i++ {
		present, err := br.ReadFlag()
		if err != nil {
			return err
		}
		if !present {
			continue
		}
		size := 16
		if i >= 6 {
			size = 64
		}
		if err := skipScalingList(br, size); err != nil {
			return err
		}
	}
	return nil
}

// skipScalingList consumes a scaling_list(size) element without storing
// it; this library only needs the dimensions past it.
func skipScalingList(br *bitio.BitReader, size int) error {
	lastScale, nextScale := int32(8), int32(8)
	for i := 0; i < size; i++ {
		if nextScale != 0 {
			delta, err := readSE(br)
			if err != nil {
				return err
			}
			nextScale = (lastScale + delta + 256) % 256
		}
		if nextScale != 0 {
			lastScale = nextScale
		}
	}
	return nil
}

// readSE reads an Exp-Golomb-coded signed integer, the se(v) syntax
// descriptor: se(v) = (-1)^(k+1) * ceil(k/2) where k = ue(v).
func readSE(br *bitio.BitReader) (int32, error) {
	k, err := br.ReadUE()
	if err != nil {
		return 0, err
	}
	v := int32((k + 1) / 2)
	if k%2 == 0 {
		v = -v
	}
	return v, nil
}

type spsError string

func (e spsError) Error() string { return string(e) }

const errShortSPS = spsError("h264util: SPS RBSP too short")
