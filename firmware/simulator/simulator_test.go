package simulator

import (
	"context"
	"testing"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/status"
)

func openDecoder(t *testing.T, s *Simulator, format codec.Format) firmware.Handle {
	t.Helper()
	h, err := s.OpenDecoder(context.Background(), firmware.OpenParams{Format: format, Width: 640, Height: 480}, make([]byte, 1<<16))
	if err != nil {
		t.Fatalf("OpenDecoder: %v", err)
	}
	return h
}

func openEncoder(t *testing.T, s *Simulator, format codec.Format) firmware.Handle {
	t.Helper()
	h, err := s.OpenEncoder(context.Background(), firmware.OpenParams{Format: format, Width: 640, Height: 480}, make([]byte, 1<<16))
	if err != nil {
		t.Fatalf("OpenEncoder: %v", err)
	}
	return h
}

// TestQueryInitialInfoBothDirections confirms QueryInitialInfo works for
// handles opened either as a decoder or as an encoder, since both
// directions call it during open.
func TestQueryInitialInfoBothDirections(t *testing.T) {
	s := New(nil)
	dh := openDecoder(t, s, codec.FormatH264)
	eh := openEncoder(t, s, codec.FormatH264)

	if _, _, err := s.QueryInitialInfo(dh, false); err != nil {
		t.Errorf("QueryInitialInfo(decoder): %v", err)
	}
	if _, _, err := s.QueryInitialInfo(eh, false); err != nil {
		t.Errorf("QueryInitialInfo(encoder): %v", err)
	}
}

// TestRegisterFramebuffersBothDirections confirms RegisterFramebuffers
// records pool size for either handle direction.
func TestRegisterFramebuffersBothDirections(t *testing.T) {
	s := New(nil)
	dh := openDecoder(t, s, codec.FormatH264)
	eh := openEncoder(t, s, codec.FormatH264)

	descs := make([]firmware.FramebufferDescriptor, 3)
	if err := s.RegisterFramebuffers(dh, descs); err != nil {
		t.Errorf("RegisterFramebuffers(decoder): %v", err)
	}
	if s.decoders[dh.(handle).id].poolSize != 3 {
		t.Errorf("decoder poolSize = %d, want 3", s.decoders[dh.(handle).id].poolSize)
	}

	if err := s.RegisterFramebuffers(eh, descs); err != nil {
		t.Errorf("RegisterFramebuffers(encoder): %v", err)
	}
	if s.encoders[eh.(handle).id].poolSize != 3 {
		t.Errorf("encoder poolSize = %d, want 3", s.encoders[eh.(handle).id].poolSize)
	}
}

// TestDecodeLifecycle exercises start/wait/drain across a handful of
// frames with no reordering, confirming decoded index order.
func TestDecodeLifecycle(t *testing.T) {
	s := New(nil)
	h := openDecoder(t, s, codec.FormatH264)
	if err := s.RegisterFramebuffers(h, make([]firmware.FramebufferDescriptor, 2)); err != nil {
		t.Fatalf("RegisterFramebuffers: %v", err)
	}

	for i := 0; i < 2; i++ {
		if code, err := s.StartDecodeFrame(h, firmware.FramebufferDescriptor{}); err != nil || code != status.FwSuccess {
			t.Fatalf("StartDecodeFrame(%d): code=%v err=%v", i, code, err)
		}
		arrived, err := s.WaitDecode(context.Background(), h, 0)
		if err != nil || !arrived {
			t.Fatalf("WaitDecode(%d): arrived=%v err=%v", i, arrived, err)
		}
		out, err := s.DrainDecodeOutput(h)
		if err != nil {
			t.Fatalf("DrainDecodeOutput(%d): %v", i, err)
		}
		if out.IndexFrameDisplay != i {
			t.Errorf("frame %d: IndexFrameDisplay = %d, want %d", i, out.IndexFrameDisplay, i)
		}
	}
}

// TestSetJPEGTablesScalesQuality confirms quality scaling actually runs
// and yields a visibly different table at low vs. high quality.
func TestSetJPEGTablesScalesQuality(t *testing.T) {
	s := New(nil)
	h := openEncoder(t, s, codec.FormatJPEG)

	if err := s.SetJPEGTables(h, 10, 60); err != nil {
		t.Fatalf("SetJPEGTables(10): %v", err)
	}
	st := s.enc(h)
	lowQuality := append([]byte(nil), st.lumaQuantTable...)

	if err := s.SetJPEGTables(h, 90, 60); err != nil {
		t.Fatalf("SetJPEGTables(90): %v", err)
	}
	highQuality := st.lumaQuantTable

	if len(lowQuality) != 64 || len(highQuality) != 64 {
		t.Fatalf("quant table length = %d/%d, want 64/64", len(lowQuality), len(highQuality))
	}
	// Lower quality coarsens quantization, so its coefficients should be
	// at least as large, and strictly larger somewhere.
	greater := false
	for i := range lowQuality {
		if lowQuality[i] < highQuality[i] {
			t.Errorf("coefficient %d: low-quality %d < high-quality %d", i, lowQuality[i], highQuality[i])
		}
		if lowQuality[i] > highQuality[i] {
			greater = true
		}
	}
	if !greater {
		t.Error("low-quality and high-quality tables are identical")
	}
}

func TestSetJPEGTablesRejectsUnknownHandle(t *testing.T) {
	s := New(nil)
	if err := s.SetJPEGTables(handle{id: 999}, 50, 60); err == nil {
		t.Error("SetJPEGTables on unknown handle: want error, got nil")
	}
}

// TestSetJPEGTablesQ100ClampsToOne confirms the q=100 boundary: scale
// 200-2*100 = 0 clamps every quantization coefficient to 1.
func TestSetJPEGTablesQ100ClampsToOne(t *testing.T) {
	s := New(nil)
	h := openEncoder(t, s, codec.FormatJPEG)

	if err := s.SetJPEGTables(h, 100, 100); err != nil {
		t.Fatalf("SetJPEGTables(100): %v", err)
	}
	st := s.enc(h)
	for i, v := range st.lumaQuantTable {
		if v != 1 {
			t.Errorf("luma coefficient %d = %d, want 1 at q=100", i, v)
		}
	}
	for i, v := range st.chromaQuantTable {
		if v != 1 {
			t.Errorf("chroma coefficient %d = %d, want 1 at q=100", i, v)
		}
	}
}
