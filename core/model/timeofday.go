package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time expressed in minutes since midnight.
// Values always lie in [0, 1440).
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hours and minutes, wrapping around midnight.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return wrap(hour*60 + minute)
}

// TimeOfDayFrom returns the wall-clock time of t in its own location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM").
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("time of day %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 || len(hh) > 2 {
		return 0, fmt.Errorf("time of day %q: invalid hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || len(mm) != 2 {
		return 0, fmt.Errorf("time of day %q: invalid minute", s)
	}
	return NewTimeOfDay(h, m), nil
}

func wrap(minutes int) TimeOfDay {
	m := minutes % minutesPerDay
	if m < 0 {
		m += minutesPerDay
	}
	return TimeOfDay(m)
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Add shifts the time by d, truncated to whole minutes. Crossing midnight wraps.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return wrap(int(t) + int(d/time.Minute))
}

// NextAfter returns the first instant at or after ref whose wall-clock time is t.
func (t TimeOfDay) NextAfter(ref time.Time) time.Time {
	y, mo, d := ref.Date()
	at := time.Date(y, mo, d, t.Hour(), t.Minute(), 0, 0, ref.Location())
	if at.Before(ref.Truncate(time.Minute)) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalJSON encodes the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}
