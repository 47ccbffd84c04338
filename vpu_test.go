package vpu

import (
	"errors"
	"testing"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/framebuffer"
)

func TestLoadUnloadDecoderReferenceCounts(t *testing.T) {
	var inits, deinits int
	init := func() error { inits++; return nil }
	deinit := func() error { deinits++; return nil }

	if err := LoadDecoder(init); err != nil {
		t.Fatalf("LoadDecoder: %v", err)
	}
	if err := LoadDecoder(init); err != nil {
		t.Fatalf("LoadDecoder: %v", err)
	}
	if inits != 1 {
		t.Errorf("inits = %d, want 1 (only on 0->1 transition)", inits)
	}
	if got := DecoderLoadCount(); got != 2 {
		t.Errorf("DecoderLoadCount() = %d, want 2", got)
	}

	if err := UnloadDecoder(deinit); err != nil {
		t.Fatalf("UnloadDecoder: %v", err)
	}
	if deinits != 0 {
		t.Errorf("deinits = %d, want 0 (count still 1)", deinits)
	}
	if err := UnloadDecoder(deinit); err != nil {
		t.Fatalf("UnloadDecoder: %v", err)
	}
	if deinits != 1 {
		t.Errorf("deinits = %d, want 1 (1->0 transition)", deinits)
	}
	if got := DecoderLoadCount(); got != 0 {
		t.Errorf("DecoderLoadCount() = %d, want 0", got)
	}

	// Unbalanced unload is a no-op.
	if err := UnloadDecoder(deinit); err != nil {
		t.Fatalf("unbalanced UnloadDecoder: %v", err)
	}
	if deinits != 1 {
		t.Errorf("deinits = %d after unbalanced unload, want still 1", deinits)
	}
}

func TestLoadDecoderInitError(t *testing.T) {
	defer func() {
		// Reset package state for subsequent tests.
		decMu.Lock()
		decCount = 0
		decMu.Unlock()
	}()

	wantErr := errors.New("firmware init failed")
	err := LoadDecoder(func() error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("LoadDecoder error = %v, want %v", err, wantErr)
	}
	if got := DecoderLoadCount(); got != 0 {
		t.Errorf("DecoderLoadCount() = %d after failed init, want 0", got)
	}
}

func TestEncoderReferenceCountIndependentOfDecoder(t *testing.T) {
	if err := LoadDecoder(nil); err != nil {
		t.Fatalf("LoadDecoder: %v", err)
	}
	defer UnloadDecoder(nil)

	if err := LoadEncoder(nil); err != nil {
		t.Fatalf("LoadEncoder: %v", err)
	}
	if got := EncoderLoadCount(); got != 1 {
		t.Errorf("EncoderLoadCount() = %d, want 1", got)
	}
	if got := DecoderLoadCount(); got != 1 {
		t.Errorf("DecoderLoadCount() = %d, want 1 (independent of encoder)", got)
	}
	if err := UnloadEncoder(nil); err != nil {
		t.Fatalf("UnloadEncoder: %v", err)
	}
	if got := EncoderLoadCount(); got != 0 {
		t.Errorf("EncoderLoadCount() = %d, want 0", got)
	}
}

func TestDecGlobalInfo(t *testing.T) {
	info := DecGlobalInfo()
	if info.Version != Version {
		t.Errorf("Version = %q, want %q", info.Version, Version)
	}
	if info.HardwareTag != HardwareTag {
		t.Errorf("HardwareTag = %q, want %q", info.HardwareTag, HardwareTag)
	}
	if info.MinStreamBufferSize <= 0 {
		t.Error("MinStreamBufferSize must be positive")
	}
	if len(info.SupportedFormats) == 0 {
		t.Error("SupportedFormats must be non-empty")
	}
	found := false
	for _, f := range info.SupportedFormats {
		if f == codec.FormatH264 {
			found = true
		}
	}
	if !found {
		t.Error("SupportedFormats does not include FormatH264")
	}
}

func TestEncGlobalInfoMatchesDecGlobalInfo(t *testing.T) {
	enc, dec := EncGlobalInfo(), DecGlobalInfo()
	if enc.Version != dec.Version || enc.HardwareTag != dec.HardwareTag ||
		enc.MinStreamBufferSize != dec.MinStreamBufferSize ||
		len(enc.SupportedFormats) != len(dec.SupportedFormats) {
		t.Errorf("EncGlobalInfo() = %+v, want match with DecGlobalInfo() = %+v", enc, dec)
	}
}

func TestCompressionFormatSupportDetailsJPEG(t *testing.T) {
	d := CompressionFormatSupportDetails(codec.FormatJPEG)
	if d.MinQuality != 1 || d.MaxQuality != 99 {
		t.Errorf("JPEG quality range = [%d,%d], want [1,99]", d.MinQuality, d.MaxQuality)
	}
	if len(d.ColorFormats) == 0 {
		t.Error("JPEG ColorFormats must be non-empty")
	}
}

func TestCompressionFormatSupportDetailsH264(t *testing.T) {
	d := CompressionFormatSupportDetails(codec.FormatH264)
	if len(d.ColorFormats) != 1 || d.ColorFormats[0] != framebuffer.YUV420 {
		t.Errorf("H.264 ColorFormats = %v, want only YUV420", d.ColorFormats)
	}
	if d.H264MaxLevel[66] != 41 {
		t.Errorf("H264MaxLevel[66] = %d, want 41", d.H264MaxLevel[66])
	}
}

func TestCompressionFormatSupportDetailsVP8(t *testing.T) {
	d := CompressionFormatSupportDetails(codec.FormatVP8)
	if d.VP8SupportedProfilesMask != 0x0F {
		t.Errorf("VP8SupportedProfilesMask = %#x, want 0xF", d.VP8SupportedProfilesMask)
	}
}

func TestParseFormatName(t *testing.T) {
	cases := []struct {
		name    string
		want    codec.Format
		wantErr bool
	}{
		{"h264", codec.FormatH264, false},
		{"h264_au", codec.FormatH264, false},
		{"jpeg", codec.FormatJPEG, false},
		{"pcm", 0, true},
		{"h265", 0, true},
		{"not-a-real-codec", 0, true},
	}
	for _, c := range cases {
		got, err := ParseFormatName(c.name)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseFormatName(%q) = %v, nil; want error", c.name, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormatName(%q): unexpected error: %v", c.name, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseFormatName(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestEncoderDefaultOpenParams(t *testing.T) {
	p, err := EncoderDefaultOpenParams(codec.FormatH264, framebuffer.YUV420, 352, 288)
	if err != nil {
		t.Fatalf("EncoderDefaultOpenParams: %v", err)
	}
	if p.Bitrate != defaultBitrateKbps {
		t.Errorf("Bitrate = %d, want %d", p.Bitrate, defaultBitrateKbps)
	}
	if p.GOPSize != defaultGOPSize {
		t.Errorf("GOPSize = %d, want %d", p.GOPSize, defaultGOPSize)
	}
	if p.FrameRateNum != defaultFrameRNum || p.FrameRateDenom != defaultFrameRDenom {
		t.Errorf("frame rate = %d/%d, want %d/%d", p.FrameRateNum, p.FrameRateDenom, defaultFrameRNum, defaultFrameRDenom)
	}
	if !p.H264AUDEnabled {
		t.Error("H264AUDEnabled = false, want true for H.264")
	}

	jp, err := EncoderDefaultOpenParams(codec.FormatJPEG, framebuffer.YUV420, 352, 288)
	if err != nil {
		t.Fatalf("EncoderDefaultOpenParams (JPEG): %v", err)
	}
	if jp.JPEGQuality != 75 {
		t.Errorf("JPEGQuality = %d, want 75", jp.JPEGQuality)
	}
}

func TestEncoderDefaultOpenParamsRejectsNonYUV420(t *testing.T) {
	if _, err := EncoderDefaultOpenParams(codec.FormatH264, framebuffer.YUV444, 352, 288); err == nil {
		t.Error("EncoderDefaultOpenParams with YUV444 should have failed: encoder only supports YUV420 input")
	}
}

func TestDecoderDefaultOpenParams(t *testing.T) {
	p, err := DecoderDefaultOpenParams(codec.FormatH264, framebuffer.YUV420, 352, 288)
	if err != nil {
		t.Fatalf("DecoderDefaultOpenParams: %v", err)
	}
	if !p.ReorderEnable {
		t.Error("ReorderEnable = false, want true")
	}
	if p.Width != 352 || p.Height != 288 {
		t.Errorf("geometry = %dx%d, want 352x288", p.Width, p.Height)
	}
}

func TestDecoderDefaultOpenParamsRejectsUnsupportedColorFormat(t *testing.T) {
	if _, err := DecoderDefaultOpenParams(codec.FormatH264, framebuffer.YUV444, 352, 288); err == nil {
		t.Error("DecoderDefaultOpenParams with YUV444 for H.264 should have failed")
	}
}
