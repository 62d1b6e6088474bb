package locks

import (
	"testing"
	"time"
)

func at(h, m int) time.Time { return time.Date(2025, 1, 10, h, m, 0, 0, time.UTC) }

func TestIsLockedHalfOpen(t *testing.T) {
	l := New()
	l.Lock(1, at(19, 0), at(21, 0))

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"inside", at(19, 30), at(20, 0), true},
		{"straddles start", at(18, 0), at(19, 1), true},
		{"straddles end", at(20, 59), at(22, 0), true},
		{"covers", at(18, 0), at(22, 0), true},
		{"ends at start", at(17, 0), at(19, 0), false},
		{"starts at end", at(21, 0), at(23, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := l.IsLocked(1, tt.start, tt.end); got != tt.want {
				t.Fatalf("IsLocked = %v, want %v", got, tt.want)
			}
		})
	}
	if l.IsLocked(2, at(19, 0), at(21, 0)) {
		t.Fatalf("other tables must not be locked")
	}
}

func TestOverlappingLocksCoexist(t *testing.T) {
	l := New()
	l.Lock(1, at(19, 0), at(21, 0))
	l.Lock(1, at(20, 0), at(22, 0))
	l.Lock(1, at(19, 0), at(21, 0))
	if got := len(l.Intervals(1)); got != 3 {
		t.Fatalf("expected 3 holds, got %d", got)
	}
}

func TestUnlockExactMatchOnly(t *testing.T) {
	l := New()
	l.Lock(1, at(19, 0), at(21, 0))
	l.Lock(1, at(12, 0), at(14, 0))

	if n := l.Unlock(1, at(19, 0), at(20, 0)); n != 0 {
		t.Fatalf("partial release must not remove anything, removed %d", n)
	}
	if !l.IsLocked(1, at(20, 0), at(20, 30)) {
		t.Fatalf("hold disappeared after a non-matching unlock")
	}
	if n := l.Unlock(1, at(19, 0), at(21, 0)); n != 1 {
		t.Fatalf("expected one hold removed, got %d", n)
	}
	if l.IsLocked(1, at(19, 0), at(21, 0)) {
		t.Fatalf("hold still present after unlock")
	}
	if !l.IsLocked(1, at(12, 30), at(13, 0)) {
		t.Fatalf("unrelated hold was removed")
	}
	l.Unlock(1, at(12, 0), at(14, 0))
	if got := l.Intervals(1); len(got) != 0 {
		t.Fatalf("expected no holds, got %v", got)
	}
}

func TestHoldsExact(t *testing.T) {
	l := New()
	l.Lock(4, at(19, 0), at(21, 0))
	if !l.Holds(4, at(19, 0), at(21, 0)) {
		t.Fatalf("expected exact hold")
	}
	if l.Holds(4, at(19, 0), at(20, 0)) {
		t.Fatalf("overlapping interval reported as exact hold")
	}
	if l.Holds(5, at(19, 0), at(21, 0)) {
		t.Fatalf("hold reported on the wrong table")
	}
}
