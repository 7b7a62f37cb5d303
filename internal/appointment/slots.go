package appointment

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the DD/MM/YYYY form dates are stored in. Single-digit day
// and month are accepted on input.
const DateLayout = "2/1/2006"

const (
	firstSlotHour = 9
	closingHour   = 18
	slotLength    = 30 * time.Minute
)

var slotGrid = buildSlots()

func buildSlots() []string {
	var out []string
	for m := firstSlotHour * 60; m < closingHour*60; m += int(slotLength / time.Minute) {
		out = append(out, fmt.Sprintf("%02d:%02d", m/60, m%60))
	}
	return out
}

// Slots returns the bookable half-hour tokens, 09:00 through 17:30.
func Slots() []string {
	return append([]string(nil), slotGrid...)
}

func ValidSlot(s string) bool {
	for _, v := range slotGrid {
		if v == s {
			return true
		}
	}
	return false
}

// ParseDate reads a DD/MM/YYYY string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// FormatDate renders t the way appointment dates are stored.
func FormatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

// SameDate reports whether two stored date strings name the same day,
// ignoring zero padding.
func SameDate(a, b string) bool {
	if a == b {
		return true
	}
	ta, err := ParseDate(a, time.UTC)
	if err != nil {
		return false
	}
	tb, err := ParseDate(b, time.UTC)
	if err != nil {
		return false
	}
	return ta.Equal(tb)
}

// Window is the range of dates open for booking, relative to now.
type Window struct {
	Months int
	Loc    *time.Location
}

// Contains reports whether date parses and falls within
// [today, today + Months] in the window's location.
func (w Window) Contains(date string, now time.Time) bool {
	loc := w.Loc
	if loc == nil {
		loc = time.UTC
	}
	d, err := ParseDate(date, loc)
	if err != nil {
		return false
	}
	n := now.In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	last := today.AddDate(0, w.Months, 0)
	return !d.Before(today) && !d.After(last)
}
