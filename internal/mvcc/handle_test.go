package mvcc

import "testing"

func TestEncodeDecodeHandleRoundTrip(t *testing.T) {
	cases := []struct {
		ts   Timestamp
		step Step
	}{
		{Primordial, 0},
		{sentinelSpace + 1, 0},
		{sentinelSpace + 1, 1},
		{1 << 20, maxStep},
	}
	for _, c := range cases {
		h := EncodeHandle(c.ts, c.step)
		if got := h.DecodeTimestamp(); got != c.ts {
			t.Errorf("DecodeTimestamp(%v) = %v, want %v", h, got, c.ts)
		}
		if got := h.DecodeStep(); got != c.step {
			t.Errorf("DecodeStep(%v) = %v, want %v", h, got, c.step)
		}
	}
}

func TestHandleOrdersByTimestampThenStep(t *testing.T) {
	lo := EncodeHandle(10, 3)
	hi := EncodeHandle(10, 4)
	if !(lo < hi) {
		t.Errorf("same-ts handles should order by step: %v !< %v", lo, hi)
	}

	cross := EncodeHandle(11, 0)
	if !(hi < cross) {
		t.Errorf("a later timestamp should always sort after an earlier one regardless of step: %v !< %v", hi, cross)
	}
}

func TestTimestampSentinels(t *testing.T) {
	if !Aborted.IsAborted() {
		t.Error("Aborted.IsAborted() = false")
	}
	if !TimedOut.IsTimedOut() {
		t.Error("TimedOut.IsTimedOut() = false")
	}
	if Uncommitted.Committed() {
		t.Error("Uncommitted.Committed() = true")
	}
	if Aborted.Committed() {
		t.Error("Aborted.Committed() = true")
	}
	if !Primordial.Committed() {
		t.Error("Primordial.Committed() = false")
	}
	if got := Timestamp(sentinelSpace + 1); !got.Committed() {
		t.Errorf("ordinary timestamp %v should count as committed", got)
	}
}

func TestPrimordialHandleSortsFirst(t *testing.T) {
	ordinary := EncodeHandle(sentinelSpace+1, 0)
	if !(PrimordialHandle < ordinary) {
		t.Errorf("PrimordialHandle should sort before any allocator-issued handle")
	}
}
