package status

import (
	"errors"
	"testing"
)

func TestFromFirmware(t *testing.T) {
	cases := []struct {
		in   FirmwareCode
		want Code
	}{
		{FwSuccess, OK},
		{FwJPEGEOS, OK},
		{FwFrameNotComplete, Error},
		{FwInsufficientFrameBuffers, InsufficientFramebuffers},
		{FwCalledBefore, AlreadyCalled},
		{FwFailureTimeout, Timeout},
		{FwWrongCallSequence, InvalidCall},
	}
	for _, c := range cases {
		if got := FromFirmware(c.in); got != c.want {
			t.Errorf("FromFirmware(%v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestWrapUnwrapIs(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Timeout, cause, "waiting on interrupt")
	if err == nil {
		t.Fatal("Wrap returned nil for non-OK code")
	}
	if !errors.Is(err, Timeout) {
		t.Errorf("errors.Is(err, Timeout) = false, want true")
	}
	if errors.Is(err, Error) {
		t.Errorf("errors.Is(err, Error) = true, want false")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Unwrap chain should reach cause")
	}
}

func TestWrapOK(t *testing.T) {
	if err := Wrap(OK, errors.New("x"), "msg"); err != nil {
		t.Errorf("Wrap(OK, ...) = %v, want nil", err)
	}
}

func TestFrom(t *testing.T) {
	err := New(InvalidCall)
	code, ok := From(err)
	if !ok || code != InvalidCall {
		t.Errorf("From(%v) = (%v, %v), want (InvalidCall, true)", err, code, ok)
	}
	code, ok = From(nil)
	if !ok || code != OK {
		t.Errorf("From(nil) = (%v, %v), want (OK, true)", code, ok)
	}
}
