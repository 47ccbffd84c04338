package vpulog

import "testing"

type recordingSink struct {
	records []Record
}

func (s *recordingSink) Write(r Record) { s.records = append(s.records, r) }

func TestThresholdFiltersBelowLevel(t *testing.T) {
	sink := &recordingSink{}
	l := New(sink)
	l.SetLevel(LevelWarning)

	l.Info("should be discarded")
	l.Error("should pass")
	l.Warning("should also pass")

	if len(sink.records) != 2 {
		t.Fatalf("got %d records, want 2: %+v", len(sink.records), sink.records)
	}
	if sink.records[0].Message != "should pass" {
		t.Errorf("records[0].Message = %q, want %q", sink.records[0].Message, "should pass")
	}
}

func TestFormatting(t *testing.T) {
	sink := &recordingSink{}
	l := New(sink)
	l.SetLevel(LevelTrace)
	l.Debug("value is %d", 42)
	if len(sink.records) != 1 {
		t.Fatalf("got %d records, want 1", len(sink.records))
	}
	if got, want := sink.records[0].Message, "value is 42"; got != want {
		t.Errorf("Message = %q, want %q", got, want)
	}
	if sink.records[0].Func == "" || sink.records[0].File == "" {
		t.Errorf("expected call site to be populated, got %+v", sink.records[0])
	}
}

func TestDiscardSink(t *testing.T) {
	l := Discard()
	// Should not panic even at Trace with the default Info threshold.
	l.Trace("anything")
}
