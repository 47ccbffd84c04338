/*
DESCRIPTION
  status.go defines the library-level return code taxonomy shared by the
  decoder and encoder state machines, and the mapping from firmware return
  codes to these codes.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package status defines the decoder/encoder return code taxonomy (the
// library-level outcomes every vpu/decoder and vpu/encoder operation maps
// firmware return codes onto) and a typed error wrapping one of those codes.
package status

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is a library-level return code. With the exception of OK, every code
// is a hard error: the caller's contract is to close the instance.
type Code int

const (
	// OK indicates the operation finished successfully. Flow-control
	// outcomes (MoreInputNeeded, NewStreamInfoAvailable, FrameSkipped,
	// DecodedFrameAvailable, EOS, VideoParametersChanged) are reported
	// through output codes while the return code stays OK.
	OK Code = iota
	// Error is the catch-all for failures that don't match a more
	// specific code below.
	Error
	// InvalidParams indicates input parameters were invalid.
	InvalidParams
	// InvalidHandle indicates an internal handle was invalid; most likely
	// a bug in the library.
	InvalidHandle
	// InvalidFramebuffer indicates a registered framebuffer's fields
	// were invalid.
	InvalidFramebuffer
	// InsufficientFramebuffers indicates not enough framebuffers were
	// supplied to the pool.
	InsufficientFramebuffers
	// InvalidStride indicates a framebuffer stride value was invalid.
	InvalidStride
	// InvalidCall indicates a function was called at an inappropriate
	// time (also known as "wrong call sequence").
	InvalidCall
	// Timeout indicates the operation timed out waiting on the firmware.
	Timeout
	// AlreadyCalled indicates a once-only function was called again.
	AlreadyCalled
	// InsufficientStreamBufferSize indicates the stream (bitstream)
	// buffer supplied at open time was smaller than required.
	InsufficientStreamBufferSize
	// InvalidExtraHeaderData indicates codec-specific extra header data
	// was missing or malformed (e.g. a WMV3 extra-header shorter than
	// 4 bytes).
	InvalidExtraHeaderData
	// UnsupportedCompressionFormat indicates the requested codec format
	// is not supported.
	UnsupportedCompressionFormat
	// DmaMemoryAccessError indicates a failure mapping or accessing a
	// DMA buffer.
	DmaMemoryAccessError
	// WriteCallbackFailed is a legacy encoder-only code, retained for the
	// output-buffer callback surface that this library does not model;
	// nothing in this module returns it.
	WriteCallbackFailed
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case Error:
		return "error"
	case InvalidParams:
		return "invalid params"
	case InvalidHandle:
		return "invalid handle"
	case InvalidFramebuffer:
		return "invalid framebuffer"
	case InsufficientFramebuffers:
		return "insufficient framebuffers"
	case InvalidStride:
		return "invalid stride"
	case InvalidCall:
		return "invalid call (wrong call sequence)"
	case Timeout:
		return "timeout"
	case AlreadyCalled:
		return "already called"
	case InsufficientStreamBufferSize:
		return "insufficient stream buffer size"
	case InvalidExtraHeaderData:
		return "invalid extra header data"
	case UnsupportedCompressionFormat:
		return "unsupported compression format"
	case DmaMemoryAccessError:
		return "DMA memory access error"
	case WriteCallbackFailed:
		return "write callback failed"
	default:
		return fmt.Sprintf("status.Code(%d)", int(c))
	}
}

// Error satisfies the error interface directly, so a bare Code value can be
// returned and compared with errors.Is.
func (c Code) Error() string { return c.String() }

// Fatal reports whether code requires the caller to close the instance, per
// the propagation policy: every non-OK return code is fatal.
func (c Code) Fatal() bool { return c != OK }

// wrapped is a status Code together with an optional underlying cause
// captured with a stack trace by github.com/pkg/errors, so a failure can be
// traced back to the firmware-layer call that produced it.
type wrapped struct {
	code  Code
	cause error
}

func (w *wrapped) Error() string {
	if w.cause == nil {
		return w.code.String()
	}
	return fmt.Sprintf("%s: %v", w.code, w.cause)
}

func (w *wrapped) Unwrap() error { return w.cause }

// Is reports whether err's code equals target, so callers can write
// `errors.Is(err, status.Timeout)`.
func (w *wrapped) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == w.code
}

// New returns an error carrying code with no further context.
func New(code Code) error {
	if code == OK {
		return nil
	}
	return &wrapped{code: code}
}

// Wrap returns an error carrying code, with cause recorded as the
// underlying stack-traced cause via github.com/pkg/errors.
func Wrap(code Code, cause error, msg string) error {
	if code == OK {
		return nil
	}
	if cause == nil {
		return &wrapped{code: code}
	}
	return &wrapped{code: code, cause: errors.Wrap(cause, msg)}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(code Code, cause error, format string, args ...interface{}) error {
	return Wrap(code, cause, fmt.Sprintf(format, args...))
}

// From extracts the Code carried by err, if any. A nil err yields (OK,
// true). ok is false if a non-nil err does not carry a status Code (in
// which case From reports Error, since an un-typed non-nil error is still
// a hard failure).
func From(err error) (code Code, ok bool) {
	if err == nil {
		return OK, true
	}
	var w *wrapped
	if errors.As(err, &w) {
		return w.code, true
	}
	if c, isCode := err.(Code); isCode {
		return c, true
	}
	return Error, false
}
