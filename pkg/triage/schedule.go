package triage

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time as seconds after midnight
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60), nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/3600, int(t)%3600/60)
}

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// DefaultWorkdays is Monday to Friday.
func DefaultWorkdays() map[time.Weekday]bool {
	return map[time.Weekday]bool{
		time.Monday: true, time.Tuesday: true, time.Wednesday: true,
		time.Thursday: true, time.Friday: true,
	}
}

// WorkingHours is the window during which replies may be sent automatically.
// A nil Start or End means no restriction at all.
type WorkingHours struct {
	Start *TimeOfDay
	End   *TimeOfDay
	Days  map[time.Weekday]bool
}

// ParseWorkingHours builds a window from config strings. Empty start or end
// leaves the window unrestricted; empty days selects Monday to Friday.
func ParseWorkingHours(start, end, days string) (WorkingHours, error) {
	var wh WorkingHours
	if strings.TrimSpace(start) != "" {
		s, err := ParseTimeOfDay(start)
		if err != nil {
			return wh, fmt.Errorf("working hours start: %w", err)
		}
		wh.Start = &s
	}
	if strings.TrimSpace(end) != "" {
		e, err := ParseTimeOfDay(end)
		if err != nil {
			return wh, fmt.Errorf("working hours end: %w", err)
		}
		wh.End = &e
	}

	if strings.TrimSpace(days) == "" {
		wh.Days = DefaultWorkdays()
		return wh, nil
	}
	wh.Days = make(map[time.Weekday]bool)
	for _, name := range strings.Split(days, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		d, ok := weekdayNames[name]
		if !ok {
			return wh, fmt.Errorf("unknown weekday %q: use mon,tue,wed,thu,fri,sat,sun", name)
		}
		wh.Days[d] = true
	}
	return wh, nil
}

// Restricted reports whether both bounds are configured.
func (wh WorkingHours) Restricted() bool {
	return wh.Start != nil && wh.End != nil
}

// Contains reports whether now falls inside the window. Windows never span
// midnight: an end before the start matches nothing.
func (wh WorkingHours) Contains(now time.Time) bool {
	if !wh.Restricted() {
		return true
	}
	days := wh.Days
	if days == nil {
		days = DefaultWorkdays()
	}
	if !days[now.Weekday()] {
		return false
	}
	t := TimeOfDay(now.Hour()*3600 + now.Minute()*60 + now.Second())
	return *wh.Start <= t && t <= *wh.End
}
