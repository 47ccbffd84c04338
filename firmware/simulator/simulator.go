/*
DESCRIPTION
  simulator.go implements firmware.Driver entirely in software, the
  vpu/firmware equivalent of the teacher's device/file.AVFile: a stand-in
  collaborator good enough to drive the decoder/encoder state machines
  and their tests without real VPU hardware.

  It does not decode or encode any pixels (the spec's Non-goals exclude
  a software codec path); it tracks pool-slot bookkeeping and emits
  output records that a real firmware would, in an order a test can
  assert against. Scenario-specific behavior (a forced
  VideoParametersChanged, a forced Timeout) is driven by explicit Script
  hooks rather than real bitstream inspection.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package simulator provides a software-only firmware.Driver, standing
// in for libimxvpuapi2 in tests and in deployments without VPU hardware.
package simulator

import (
	"context"
	"sync"
	"time"

	"github.com/ausocean/vpu/codec"
	"github.com/ausocean/vpu/firmware"
	"github.com/ausocean/vpu/status"
	"github.com/ausocean/vpu/vpulog"
)

// handle identifies one open decoder or encoder instance.
type handle struct {
	id int
}

type decState struct {
	params       firmware.OpenParams
	poolSize     int
	nextSlot     int
	pending      []int // decoded-but-not-yet-displayed pool slot indices, FIFO
	reorderDelay int
	lastDecoded  int
	draining     bool
	eosSignaled  bool

	// forceVideoParamsChanged, when set by Script, causes the next
	// DrainDecodeOutput to report a video-parameter change instead of
	// its usual bookkeeping, simulating scenario 3 (parameter change).
	forceVideoParamsChanged bool
	// forceTimeout causes the next WaitDecode to report no interrupt.
	forceTimeout bool
}

type encState struct {
	params      firmware.OpenParams
	poolSize    int
	frameCount  int
	headerBytes map[firmware.HeaderKind][]byte

	lumaQuantTable   []byte
	chromaQuantTable []byte
	restartInterval  int
}

// Simulator is a firmware.Driver implementation with no hardware
// dependency. ReorderDelay controls how many decode calls the simulated
// decoder holds a frame before reporting it displayable, modelling a
// reference picture buffer; 0 disables reordering.
type Simulator struct {
	ReorderDelay int

	mu       sync.Mutex
	nextID   int
	decoders map[int]*decState
	encoders map[int]*encState
	log      vpulog.Logger
}

// New returns a Simulator. A nil logger discards all log output.
func New(log vpulog.Logger) *Simulator {
	if log == nil {
		log = vpulog.Discard()
	}
	return &Simulator{
		decoders: make(map[int]*decState),
		encoders: make(map[int]*encState),
		log:      log,
	}
}

func (s *Simulator) OpenDecoder(ctx context.Context, params firmware.OpenParams, streamBuffer []byte) (firmware.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := handle{id: s.nextID}
	s.decoders[h.id] = &decState{params: params, reorderDelay: s.ReorderDelay}
	s.log.Debug("simulator: opened decoder %d for format %s", h.id, params.Format)
	return h, nil
}

func (s *Simulator) OpenEncoder(ctx context.Context, params firmware.OpenParams, streamBuffer []byte) (firmware.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := handle{id: s.nextID}
	s.encoders[h.id] = &encState{params: params, headerBytes: make(map[firmware.HeaderKind][]byte)}
	s.log.Debug("simulator: opened encoder %d for format %s", h.id, params.Format)
	return h, nil
}

func (s *Simulator) CloseDecoder(h firmware.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.decoders, h.(handle).id)
	return nil
}

func (s *Simulator) CloseEncoder(h firmware.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.encoders, h.(handle).id)
	return nil
}

func (s *Simulator) dec(h firmware.Handle) *decState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.decoders[h.(handle).id]
}

func (s *Simulator) enc(h firmware.Handle) *encState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encoders[h.(handle).id]
}

// minFramebufferCount returns the simulated firmware's minimum pool size
// for a format: JPEG decodes into a single slot, everything else asks
// for a small reference window.
func minFramebufferCount(f codec.Format) int {
	if f == codec.FormatJPEG {
		return 1
	}
	return 2
}

func (s *Simulator) QueryInitialInfo(h firmware.Handle, escape bool) (firmware.InitialStreamInfo, status.Code, error) {
	params, ok := s.handleParams(h)
	if !ok {
		return firmware.InitialStreamInfo{}, status.Error, nil
	}
	info := firmware.InitialStreamInfo{
		Width:                params.Width,
		Height:               params.Height,
		MinFramebufferCount:  minFramebufferCount(params.Format),
		FramebufferAlignment: 4096,
		FrameRateNum:         25,
		FrameRateD:           1,
	}
	return info, status.OK, nil
}

// handleParams returns the OpenParams for either a decoder or an
// encoder handle; QueryInitialInfo is called on both directions.
func (s *Simulator) handleParams(h firmware.Handle) (firmware.OpenParams, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := h.(handle).id
	if st, ok := s.decoders[id]; ok {
		return st.params, true
	}
	if st, ok := s.encoders[id]; ok {
		return st.params, true
	}
	return firmware.OpenParams{}, false
}

func (s *Simulator) RegisterFramebuffers(h firmware.Handle, descriptors []firmware.FramebufferDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := h.(handle).id
	if st, ok := s.decoders[id]; ok {
		st.poolSize = len(descriptors)
		return nil
	}
	if st, ok := s.encoders[id]; ok {
		st.poolSize = len(descriptors)
		return nil
	}
	return nil
}

func (s *Simulator) StartDecodeFrame(h firmware.Handle, outputFB firmware.FramebufferDescriptor) (status.FirmwareCode, error) {
	st := s.dec(h)
	if st.poolSize == 0 && !st.draining {
		return status.FwInsufficientFrameBuffers, nil
	}
	if !st.draining {
		idx := st.nextSlot
		st.nextSlot = (st.nextSlot + 1) % st.poolSize
		st.pending = append(st.pending, idx)
		st.lastDecoded = idx
	} else {
		st.lastDecoded = firmware.NoFrame
	}
	return status.FwSuccess, nil
}

func (s *Simulator) WaitDecode(ctx context.Context, h firmware.Handle, timeout time.Duration) (bool, error) {
	st := s.dec(h)
	if st.forceTimeout {
		st.forceTimeout = false
		return false, nil
	}
	return true, nil
}

func (s *Simulator) DrainDecodeOutput(h firmware.Handle) (firmware.DecOutputInfo, error) {
	st := s.dec(h)

	if st.forceVideoParamsChanged {
		st.forceVideoParamsChanged = false
		return firmware.DecOutputInfo{
			IndexFrameDecoded:  firmware.NoFrame,
			IndexFrameDisplay:  firmware.NoFrame,
			VideoParamsChanged: true,
		}, nil
	}

	if st.draining {
		if len(st.pending) == 0 {
			return firmware.DecOutputInfo{IndexFrameDecoded: firmware.NoFrame, IndexFrameDisplay: firmware.AllDisplayed}, nil
		}
		idx := st.pending[0]
		st.pending = st.pending[1:]
		return firmware.DecOutputInfo{
			IndexFrameDecoded: firmware.NoFrame,
			IndexFrameDisplay: idx,
			PicType:           [2]firmware.PicType{firmware.PicP, firmware.PicP},
		}, nil
	}

	out := firmware.DecOutputInfo{
		IndexFrameDecoded: st.lastDecoded,
		IndexFrameDisplay: firmware.NoFrame,
		PicType:           [2]firmware.PicType{firmware.PicP, firmware.PicP},
	}
	if len(st.pending) > st.reorderDelay {
		out.IndexFrameDisplay = st.pending[0]
		st.pending = st.pending[1:]
	}
	return out, nil
}

func (s *Simulator) SignalEOS(h firmware.Handle) error {
	st := s.dec(h)
	st.draining = true
	st.eosSignaled = true
	return nil
}

func (s *Simulator) ClearDisplayFlag(h firmware.Handle, index int) error {
	return nil
}

func (s *Simulator) StartEncodeFrame(h firmware.Handle, src firmware.FramebufferDescriptor, forceIPicture bool) (status.FirmwareCode, error) {
	st := s.enc(h)
	st.frameCount++
	return status.FwSuccess, nil
}

func (s *Simulator) WaitEncode(ctx context.Context, h firmware.Handle, timeout time.Duration) (bool, error) {
	return true, nil
}

func (s *Simulator) DrainEncodeOutput(h firmware.Handle) (firmware.EncOutputInfo, error) {
	st := s.enc(h)
	picType := firmware.PicP
	if st.frameCount == 1 {
		picType = firmware.PicIDR
	}
	// The simulator fabricates a small, deterministic "bitstream" so
	// the encoder's header-packaging logic has real bytes to prepend
	// to and a real size to account for.
	const fakeBitstreamSize = 64
	return firmware.EncOutputInfo{
		BitstreamBufferOffset: 0,
		BitstreamSize:         fakeBitstreamSize,
		PicType:               picType,
	}, nil
}

func (s *Simulator) GenerateHeader(h firmware.Handle, kind firmware.HeaderKind, scratch []byte) (int, error) {
	st := s.enc(h)
	body, ok := st.headerBytes[kind]
	if !ok {
		body = fabricatedHeader(kind)
		if kind == firmware.HeaderJPEG {
			// Append a baseline SOF0 segment (3 components, 4:2:0) carrying
			// the encoder's geometry, so a decoder can recover it.
			w, h := st.params.Width, st.params.Height
			body = append(body, 0xFF, 0xC0, 0x00, 0x11, 0x08, byte(h>>8), byte(h), byte(w>>8), byte(w),
				0x03, 0x01, 0x22, 0x00, 0x02, 0x11, 0x01, 0x03, 0x11, 0x01)
		}
		st.headerBytes[kind] = body
	}
	n := copy(scratch, body)
	return n, nil
}

// fabricatedHeader returns a small, deterministic placeholder payload
// for a pre-generated header kind. Real bytes come from the firmware;
// the simulator only needs something a test can recognize and that the
// encoder's size accounting treats consistently.
func fabricatedHeader(kind firmware.HeaderKind) []byte {
	switch kind {
	case firmware.HeaderSPS:
		return []byte{0x67, 0x42, 0x00, 0x1F}
	case firmware.HeaderPPS:
		return []byte{0x68, 0xCE, 0x3C, 0x80}
	case firmware.HeaderVOS:
		return []byte{0x00, 0x00, 0x01, 0xB0}
	case firmware.HeaderVIS:
		return []byte{0x00, 0x00, 0x01, 0xB5}
	case firmware.HeaderVOL:
		return []byte{0x00, 0x00, 0x01, 0x20}
	case firmware.HeaderJPEG:
		// Starts with the SOI marker, per spec.md 4.7's get_encoded_frame
		// packaging order (SOI, then the JFIF APP0 segment the encoder
		// inserts, then the remainder of this header).
		return []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x43}
	default:
		return nil
	}
}

// SetJPEGTables scales the default luma/chroma quantization tables by
// quality and records them against the encoder handle, the way the
// firmware would program its internal JPEG quantizer at open time.
func (s *Simulator) SetJPEGTables(h firmware.Handle, quality int, restartInterval int) error {
	st := s.enc(h)
	if st == nil {
		return status.New(status.InvalidHandle)
	}
	st.lumaQuantTable = scaleQuantTable(defaultLumaQuantiser, quality)
	st.chromaQuantTable = scaleQuantTable(defaultChromaQuantiser, quality)
	st.restartInterval = restartInterval
	return nil
}

func (s *Simulator) SetBitrate(h firmware.Handle, kbps int) error { return nil }

func (s *Simulator) SetFrameRate(h firmware.Handle, num, den uint) error { return nil }

// Script exposes scripted overrides for deterministic test scenarios
// that real hardware timing or bitstream content would otherwise drive:
// a forced VideoParametersChanged (scenario 3) or a forced Timeout.
type Script struct {
	s *Simulator
	h firmware.Handle
}

// ScriptFor returns a Script bound to a previously-opened decoder
// handle.
func (s *Simulator) ScriptFor(h firmware.Handle) Script { return Script{s: s, h: h} }

// ForceVideoParametersChanged causes the next DrainDecodeOutput on this
// handle to report a video-parameter change.
func (sc Script) ForceVideoParametersChanged() {
	sc.s.dec(sc.h).forceVideoParamsChanged = true
}

// ForceTimeout causes the next WaitDecode on this handle to report no
// interrupt arrived.
func (sc Script) ForceTimeout() {
	sc.s.dec(sc.h).forceTimeout = true
}
