package appointment

import (
	"testing"
	"time"
)

func TestSlotGrid(t *testing.T) {
	s := Slots()
	if len(s) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(s))
	}
	if s[0] != "09:00" || s[len(s)-1] != "17:30" {
		t.Errorf("grid bounds: %s .. %s", s[0], s[len(s)-1])
	}
	// callers get a copy
	s[0] = "00:00"
	if !ValidSlot("09:00") || ValidSlot("00:00") {
		t.Error("grid mutated through Slots()")
	}
}

func TestSameDate(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"05/11/2026", "5/11/2026", true},
		{"05/11/2026", "05/11/2026", true},
		{"05/11/2026", "06/11/2026", false},
		{"garbage", "05/11/2026", false},
	}
	for _, tt := range tests {
		if got := SameDate(tt.a, tt.b); got != tt.want {
			t.Errorf("SameDate(%q, %q) = %v", tt.a, tt.b, got)
		}
	}
}

func TestWindowUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC-3", -3*60*60)
	w := Window{Months: 3, Loc: loc}
	// 01:00 UTC on the 18th is still the 17th three hours west
	now := time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC)

	if !w.Contains("17/10/2026", now) {
		t.Error("local today should be bookable")
	}
	if w.Contains("16/10/2026", now) {
		t.Error("local yesterday should not be bookable")
	}
}
