package decoder

import (
	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/firmware"
)

// picTypeTable maps the low bits of a firmware picType to a FrameType,
// per spec.md 4.4.2: 0→I, 1→P, 2|3→B.
var picTypeTable = map[firmware.PicType]FrameType{
	firmware.PicI:       FrameI,
	firmware.PicP:       FrameP,
	firmware.PicB:       FrameB,
	firmware.PicBI:      FrameBI,
	firmware.PicSkip:    FrameSkip,
	firmware.PicIDR:     FrameIDR,
	firmware.PicUnknown: FrameUnknown,
}

// deriveFrameTypes maps the firmware's per-field picType into the
// library's FrameType, per format family:
//   - H.264: if idrFlag is set, both fields report FrameIDR regardless
//     of picType; otherwise each field is looked up independently.
//   - WMV3/VC-1: fields may differ (interlaced content); each of the
//     two 3-bit subfields indexes the same table independently.
//   - all other formats: both fields carry the same type, taken from
//     field 0.
func deriveFrameTypes(format codec.Format, pic [2]firmware.PicType, idrFlag bool) [2]FrameType {
	if format == codec.FormatH264 && idrFlag {
		return [2]FrameType{FrameIDR, FrameIDR}
	}

	switch format {
	case codec.FormatH264, codec.FormatWMV3, codec.FormatVC1:
		return [2]FrameType{lookupPicType(pic[0]), lookupPicType(pic[1])}
	default:
		t := lookupPicType(pic[0])
		return [2]FrameType{t, t}
	}
}

func lookupPicType(p firmware.PicType) FrameType {
	if t, ok := picTypeTable[p]; ok {
		return t
	}
	return FrameUnknown
}
