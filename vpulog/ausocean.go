package vpulog

import "github.com/ausocean/utils/logging"

// FromAusocean adapts an github.com/ausocean/utils/logging.Logger (the
// interface used throughout the teacher codebase, e.g. revid.Revid and
// device/file.AVFile) into a vpu/vpulog.Sink, so a caller already wired up
// with that logger can plug it straight into a decoder/encoder without
// writing its own Sink. Trace and Log, which ausocean/utils/logging does
// not have, are both forwarded as Debug calls.
func FromAusocean(l logging.Logger) Sink {
	return &ausoceanSink{l: l}
}

type ausoceanSink struct {
	l logging.Logger
}

func (s *ausoceanSink) Write(r Record) {
	msg := r.Message
	args := []interface{}{"file", r.File, "line", r.Line, "func", r.Func}
	switch r.Level {
	case LevelError:
		s.l.Log(logging.Error, msg, args...)
	case LevelWarning:
		s.l.Log(logging.Warning, msg, args...)
	case LevelInfo:
		s.l.Log(logging.Info, msg, args...)
	default: // Debug, Log, Trace.
		s.l.Log(logging.Debug, msg, args...)
	}
}
